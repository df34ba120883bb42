// Package push entrega los cambios de mantenimiento a los clientes finales.
//
// Hub mantiene las conexiones websocket de GET /v1/push, Mailer avisa por
// SMTP a una lista fija de destinatarios y Fanout combina ambos detrás de
// maintenance.ClientPush. Todo es best-effort: un cliente lento o un SMTP
// caído nunca bloquean una transición.
package push
