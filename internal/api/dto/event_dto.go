package dto

// CommandRequest payload for POST /commands/:name.
type CommandRequest struct {
	Args []string `json:"args"`
}
