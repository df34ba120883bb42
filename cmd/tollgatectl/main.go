package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/tollgate/internal/security/secretbox"
)

type client struct {
	BaseURL   string
	APIKey    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Admin-API-Key", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	var st struct {
		NodeID  string     `json:"node_id"`
		Active  bool       `json:"active"`
		Start   *time.Time `json:"start"`
		End     *time.Time `json:"end"`
		Message string     `json:"message"`
	}
	if c.OutFormat == "text" && json.Unmarshal(body, &st) == nil {
		if !st.Active {
			fmt.Printf("node=%s maintenance=off\n", st.NodeID)
			return
		}
		fmt.Printf("node=%s maintenance=on", st.NodeID)
		if st.Start != nil {
			fmt.Printf(" start=%s", st.Start.Format(time.RFC3339))
		}
		if st.End != nil {
			fmt.Printf(" end=%s", st.End.Format(time.RFC3339))
		}
		if st.Message != "" {
			fmt.Printf(" message=%q", st.Message)
		}
		fmt.Println()
		return
	}
	var v any
	if json.Unmarshal(body, &v) == nil {
		p, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(p))
		return
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func (c *client) call(name, method, path string, body []byte) error {
	status, resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return fmt.Errorf("%s fallo: status=%d body=%s", name, status, string(resp))
	}
	c.print(status, resp)
	return nil
}

func main() {
	var (
		baseURL = envOr("TOLLGATE_ADMIN_URL", "http://localhost:8080")
		apiKey  = envOr("TOLLGATE_ADMIN_KEY", "")
		out     = envOr("TOLLGATE_OUT", "text")
		timeout = 30 * time.Second
	)
	cl := &client{HTTP: &http.Client{Timeout: timeout}}

	root := &cobra.Command{
		Use:          "tollgatectl",
		Short:        "CLI admin para Tollgate (solo /v1/admin)",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				return fmt.Errorf("falta API key (flag --admin-api-key o env TOLLGATE_ADMIN_KEY)")
			}
			if out != "json" && out != "text" {
				return fmt.Errorf("--out inválido: %q (json|text)", out)
			}
			cl.BaseURL, cl.APIKey, cl.OutFormat = baseURL, apiKey, out
			return nil
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "admin-api-url", baseURL, "URL base del Admin API (env TOLLGATE_ADMIN_URL)")
	root.PersistentFlags().StringVar(&apiKey, "admin-api-key", apiKey, "API key del Admin API (env TOLLGATE_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	maintCmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Modo mantenimiento del cluster",
	}

	var message, start, end string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Activar mantenimiento en todo el cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"message": message}
			for flagName, v := range map[string]string{"start": start, "end": end} {
				if v == "" {
					continue
				}
				t, err := time.Parse(time.RFC3339, v)
				if err != nil {
					return fmt.Errorf("--%s debe ser RFC3339: %w", flagName, err)
				}
				payload[flagName] = t
			}
			b, _ := json.Marshal(payload)
			return cl.call("start", http.MethodPost, "/v1/admin/maintenance/start", b)
		},
	}
	startCmd.Flags().StringVar(&message, "message", "", "Mensaje visible para los clientes")
	startCmd.Flags().StringVar(&start, "start", "", "Inicio planificado (RFC3339, informativo)")
	startCmd.Flags().StringVar(&end, "end", "", "Fin planificado (RFC3339, informativo)")

	endCmd := &cobra.Command{
		Use:   "end",
		Short: "Terminar el mantenimiento",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("end", http.MethodPost, "/v1/admin/maintenance/end", nil)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Estado de mantenimiento del nodo",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("status", http.MethodGet, "/v1/admin/maintenance/status", nil)
		},
	}

	maintCmd.AddCommand(startCmd, endCmd, statusCmd)

	// secret seal: no habla con el Admin API, solo necesita SECRETBOX_MASTER_KEY
	secretCmd := &cobra.Command{
		Use:   "secret",
		Short: "Sellar secretos para el YAML de config",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	sealCmd := &cobra.Command{
		Use:   "seal <plaintext>",
		Short: "Cifra un valor (DSN, password) como enc:...",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			box, err := secretbox.FromEnv()
			if err != nil {
				return err
			}
			sealed, err := box.Seal(args[0])
			if err != nil {
				return err
			}
			fmt.Println(sealed)
			return nil
		},
	}
	secretCmd.AddCommand(sealCmd)

	root.AddCommand(maintCmd, secretCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
