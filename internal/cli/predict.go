package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/animal-recognizer/internal/predictor"
)

// ErrMissingArgument is returned when no image path is given. Its text is
// printed as is after "Error: ", hence the capital letter.
var ErrMissingArgument = errors.New("No image path provided")

// FileNotFoundError is returned when the image path does not exist.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return "Image file not found: " + e.Path
}

// Setup builds the predictor once the arguments have been checked. The
// returned func releases it.
type Setup func(cmd *cobra.Command) (predictor.Predictor, func(), error)

// NewPredictCommand returns the `predict <image-path>` command. The label is
// the only thing written to stdout.
func NewPredictCommand(setup Setup) *cobra.Command {
	return &cobra.Command{
		Use:           "predict <image-path>",
		Short:         "Print the animal recognized in a local image",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return ErrMissingArgument
			}
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return &FileNotFoundError{Path: path}
			}

			p, release, err := setup(cmd)
			if err != nil {
				return err
			}
			defer release()

			in := predictor.Input{Name: path}
			if p.Mode() == predictor.ModeProduction {
				if in.Data, err = os.ReadFile(path); err != nil {
					return fmt.Errorf("failed to read image: %w", err)
				}
			}

			res, err := p.Predict(cmd.Context(), in)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Label)
			return nil
		},
	}
}

// Execute runs cmd with args and returns the process exit code. Errors are
// printed to stderr, in red on a terminal.
func Execute(cmd *cobra.Command, args []string, stderr io.Writer) int {
	if args == nil {
		// cobra falls back to os.Args when given nil.
		args = []string{}
	}
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
