package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/animal-recognizer/internal/app"
	"github.com/Brownie44l1/animal-recognizer/internal/cli"
	"github.com/Brownie44l1/animal-recognizer/internal/config"
	"github.com/Brownie44l1/animal-recognizer/internal/predictor"
)

func main() {
	v := config.New()

	cmd := cli.NewPredictCommand(func(cmd *cobra.Command) (predictor.Predictor, func(), error) {
		config.BindFlags(v, cmd.Flags())
		a, err := app.New(v)
		if err != nil {
			return nil, nil, err
		}
		return predictor.ForPath(a.Status), a.Close, nil
	})
	cmd.Use = "animal-predict <image-path>"
	config.AddCommonFlags(cmd.Flags())

	os.Exit(cli.Execute(cmd, os.Args[1:], os.Stderr))
}
