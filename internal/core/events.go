package core

// Command is a navigation request from the viewer
type Command interface {
	isCommand()
}

// GotoParent moves the focus one level up
type GotoParent struct{}

func (GotoParent) isCommand() {}

// GotoPath focuses a node by its handle in decimal text, as rendered by
// paths.ID.String. Malformed or unknown handles focus the root.
type GotoPath struct {
	Raw string
}

func (GotoPath) isCommand() {}
