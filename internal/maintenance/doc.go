// Package maintenance coordina el modo mantenimiento a nivel cluster.
//
// Un nodo declara mantenimiento vía Coordinator.Start; el registro se persiste
// en un Store enchufable, se publica en el State local y se anuncia al resto
// del cluster con un evento mínimo ("start" / "end"). Los peers no confían en
// el payload: ante "start" recargan desde el Store, ante "end" limpian local.
//
// La convergencia es best-effort. Un nodo puede ver un estado viejo mientras
// el broadcast no llegue; Status siempre refleja la creencia actual del nodo,
// no un valor acordado por el cluster.
//
// El Gate intercepta cada batch de operaciones antes de ejecutarse y reemplaza
// las no permitidas por maintenance.status. El orden de precedencia es:
//
//  1. namespace propio ("maintenance.*")
//  2. override de la sesión (OverrideKey)
//  3. política registrada para la operación (AllowAccess)
//  4. rechazo por defecto
package maintenance
