package model

import "strings"

// PacketKind is the OSPF packet type carried by a packet-exchange event.
type PacketKind string

const (
	PacketHello PacketKind = "hello"
	PacketDBD   PacketKind = "dbd"
	PacketLSR   PacketKind = "lsr"
	PacketLSU   PacketKind = "lsu"
	PacketLSAck PacketKind = "lsack"
)

// PacketStyle is how a packet kind is drawn.
type PacketStyle struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	TextColor string `json:"text_color"`
}

var packetStyles = map[PacketKind]PacketStyle{
	PacketHello: {Name: "Hello", Color: "#3b82f6", TextColor: "white"},
	PacketDBD:   {Name: "DBD", Color: "#10b981", TextColor: "white"},
	PacketLSR:   {Name: "LSR", Color: "#f59e0b", TextColor: "black"},
	PacketLSU:   {Name: "LSU", Color: "#8b5cf6", TextColor: "white"},
	PacketLSAck: {Name: "LSAck", Color: "#f43f5e", TextColor: "white"},
}

// Style returns the drawing style for the packet kind. Unknown kinds fall
// back to a neutral grey badge labelled with the upper-cased kind.
func (k PacketKind) Style() PacketStyle {
	if s, ok := packetStyles[k]; ok {
		return s
	}
	return PacketStyle{Name: strings.ToUpper(string(k)), Color: "#94a3b8", TextColor: "black"}
}

// Known reports whether k is one of the five OSPF packet types.
func (k PacketKind) Known() bool {
	_, ok := packetStyles[k]
	return ok
}

// PacketKinds returns the five OSPF packet types in exchange order.
func PacketKinds() []PacketKind {
	return []PacketKind{PacketHello, PacketDBD, PacketLSR, PacketLSU, PacketLSAck}
}
