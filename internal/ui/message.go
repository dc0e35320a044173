package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/rize/internal/auth"
	"github.com/desertthunder/rize/internal/models"
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
	MsgAuthResult MsgKind = iota
	MsgRecordsLoaded
	MsgRecordAppended
	MsgProfileLoaded
)

type authPayload struct {
	result auth.Result
	err    error
}

type recordsPayload struct {
	kind    models.CollectionKind
	records []*models.ListRecord
	err     error
}

type appendPayload struct {
	kind   models.CollectionKind
	record *models.ListRecord
	err    error
}

type profilePayload struct {
	identity *models.Identity
	err      error
}

// Kind reports which payload the message carries.
func (m Msg) Kind() MsgKind { return m.kind }

// authResultMsg is the constructor for [MsgAuthResult]
func authResultMsg(result auth.Result, err error) Msg {
	return Msg{kind: MsgAuthResult, data: authPayload{result, err}}
}

// recordsLoadedMsg is the constructor for [MsgRecordsLoaded]
func recordsLoadedMsg(kind models.CollectionKind, records []*models.ListRecord, err error) Msg {
	return Msg{kind: MsgRecordsLoaded, data: recordsPayload{kind, records, err}}
}

// recordAppendedMsg is the constructor for [MsgRecordAppended]
func recordAppendedMsg(kind models.CollectionKind, record *models.ListRecord, err error) Msg {
	return Msg{kind: MsgRecordAppended, data: appendPayload{kind, record, err}}
}

// profileLoadedMsg is the constructor for [MsgProfileLoaded]
func profileLoadedMsg(identity *models.Identity, err error) Msg {
	return Msg{kind: MsgProfileLoaded, data: profilePayload{identity, err}}
}
