// Package logger expone un logger Zap singleton con scoping por contexto.
//
// # Design Decisions
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context Scoping: cada request o listener puede llevar su propio logger
//     con campos adicionales (request_id, node_id, event) sin crear un nuevo core.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Tests: Nop() instala un logger descartable para no ensuciar la salida.
//
// # Usage
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:    cfg.App.Env,
//	    Level:  cfg.Log.Level,
//	    NodeID: cfg.App.NodeID,
//	})
//	defer logger.Sync()
//
// En services/coordinator (con contexto):
//
//	log := logger.From(ctx).With(logger.Component("maintenance.coordinator"))
//	log.Info("maintenance started", logger.Event("start"))
package logger
