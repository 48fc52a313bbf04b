package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSnapshotFetched MsgKind = iota
	MsgQueueEvent
	MsgEventsClosed
	MsgActionDone
	MsgTick
)

type snapshotData struct {
	snapshot *models.QueueSnapshot
	err      error
}

// snapshotFetchedMsg is the constructor for [MsgSnapshotFetched]
func snapshotFetchedMsg(snapshot *models.QueueSnapshot, err error) Msg {
	return Msg{kind: MsgSnapshotFetched, data: snapshotData{snapshot, err}}
}

// queueEventMsg is the constructor for [MsgQueueEvent]
func queueEventMsg(e tasks.Event) Msg {
	return Msg{kind: MsgQueueEvent, data: e}
}

// eventsClosedMsg is the constructor for [MsgEventsClosed]
func eventsClosedMsg() Msg {
	return Msg{kind: MsgEventsClosed}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(res tasks.Result) Msg {
	return Msg{kind: MsgActionDone, data: res}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}
