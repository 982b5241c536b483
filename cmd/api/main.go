package main

import (
	"go.uber.org/fx"

	"github.com/orderview/orderview/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
