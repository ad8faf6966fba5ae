package repository

import (
	"fmt"

	"raffle/internal/models"
)

func duplicateDraw(name string) error {
	return fmt.Errorf("%w: %q", models.ErrDrawAlreadyExists, name)
}

func missingDraw(id string) error {
	return fmt.Errorf("%w: id %s", models.ErrDrawNotFound, id)
}
