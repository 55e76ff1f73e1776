// Package websocket broadcasts the two things a client-side observer
// needs to reconstruct a world locally: the engine status record (§6
// engineStatus) and, per historical record that changed this step, its
// packed sample blob (§4.2). It never accepts mutations from clients —
// the engine's serial-tick semantics (§4.7) require every write to go
// through an input, never through a transport.
//
// Architecture:
//
// A Hub fans broadcasts out to every client subscribed to a world. The
// hub-and-spoke shape, the per-client send buffer, and the ping/pong
// keepalive are carried over from the teacher's game hub; only the
// payload and the subscription key (worldID instead of sessionID)
// changed.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run()
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("world"))
//	})
//	hub.BroadcastEngineStatus(worldID, status)
//	hub.BroadcastHistory(worldID, locationID, blob)
package websocket
