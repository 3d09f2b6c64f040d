package state

import "fmt"

// Kind tags the region of the tree an event describes.
type Kind int

const (
	FieldChanged Kind = iota
	ProcessStateChanged
	ValidityChanged
	ErrorsChanged
	FeedsChanged
	PostsChanged
	ModalChanged
)

var kindNames = map[Kind]string{
	FieldChanged:        "FieldChanged",
	ProcessStateChanged: "ProcessStateChanged",
	ValidityChanged:     "ValidityChanged",
	ErrorsChanged:       "ErrorsChanged",
	FeedsChanged:        "FeedsChanged",
	PostsChanged:        "PostsChanged",
	ModalChanged:        "ModalChanged",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event describes one write. Value is a copy of what was written:
//
//	FieldChanged         string or nil
//	ProcessStateChanged  model.ProcessState
//	ValidityChanged      bool
//	ErrorsChanged        model.FieldErrors
//	FeedsChanged         []model.Feed
//	PostsChanged         []model.Post
//	ModalChanged         *model.Post (nil clears)
type Event struct {
	Kind  Kind
	Path  string
	Field string // set for FieldChanged
	Value any
}
