// Package bus implementa el transporte de broadcast entre nodos.
//
// Ninguna implementación garantiza entrega: Redis Pub/Sub descarta mensajes
// para suscriptores desconectados y Local descarta cuando el buffer del
// suscriptor está lleno. El modelo de mantenimiento tolera esa pérdida.
package bus
