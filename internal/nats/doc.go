// Package nats mirrors player and device events onto NATS subjects and
// accepts player control requests over NATS request/reply.
//
// # Architecture
//
//   - Server: optional embedded NATS server running in the sdinode process
//   - Bridge: publishes event bus events to NATS and serves control requests
//
// # Subject Hierarchy
//
//	sdinode.player.{player_id}.state    # PlayerStateEvent (server → subscribers)
//	sdinode.player.{player_id}.media    # MediaEvent (server → subscribers)
//	sdinode.devices.arrived             # DeviceArrivedEvent
//	sdinode.devices.departed            # DeviceDepartedEvent
//	sdinode.control.{player_id}         # ControlMessage request, ControlReply response
//
// Events use core NATS fire-and-forget publishing. When the server is
// unreachable the bridge keeps reconnecting and events published meanwhile
// are lost.
//
// # Debugging with nats CLI
//
// Monitor everything:
//
//	nats sub "sdinode.>"
//
// Open the first device and resume playback:
//
//	nats req "sdinode.control.a3f0c1d2" '{"action":"open","url":"sdi://1"}'
//	nats req "sdinode.control.a3f0c1d2" '{"action":"rate","rate":1}'
//
// # Message Formats
//
// ControlMessage (sdinode.control.{id}):
//
//	{"action": "open", "url": "sdi://1"}
//	{"action": "close"}
//	{"action": "rate", "rate": 0}
//	{"action": "track", "index": -1}
//	{"action": "status"}
//
// ControlReply:
//
//	{
//	  "ok": false,
//	  "code": "not_found",
//	  "error": "sdi://4: device not found",
//	  "stats": {"player": "a3f0c1d2", "state": "closed", ...}
//	}
package nats
