package util

import (
	"github.com/google/uuid"
)

func GenerateOrderID() string {
	return uuid.New().String()
}

func GenerateEventID() string {
	return uuid.New().String()
}
