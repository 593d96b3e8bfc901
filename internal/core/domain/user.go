package domain

import "fmt"

type Position string

const (
	PositionAdmin   Position = "Admin"
	PositionManager Position = "Manager"
	PositionWorker  Position = "Worker"
)

func ParsePosition(s string) (Position, error) {
	switch Position(s) {
	case PositionAdmin, PositionManager, PositionWorker:
		return Position(s), nil
	}
	return "", fmt.Errorf("unknown position %q", s)
}

type User struct {
	ID       int64    `json:"userId"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Position Position `json:"position"`
}
