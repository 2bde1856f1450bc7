package models

// Project is a registered repository the agent can work on
type Project struct {
	Name     string
	Path     string
	Channels []string
}
