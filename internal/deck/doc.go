// Package deck talks to the physical panel: a raw USB HID transport for the
// 15-key 72x72 Stream Deck models (v2 wire protocol) and a Session that
// owns connect/read/reconnect, translating input reports into key events.
//
// The Session is the only component holding a device handle. The
// coordinator writes faces through Session.SetImage, which fails softly
// with ErrNotConnected while the panel is unplugged.
package deck
