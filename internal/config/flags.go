package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AddCommonFlags registers the flags shared by the server and the CLI.
func AddCommonFlags(fs *pflag.FlagSet) {
	fs.String("config-file", "", "Path to a config file (default: <root>/config.yaml)")
	fs.String("env-file", "", "Path to a .env file (default: ./.env)")
	fs.String("root", "", "Install root that relative model and label paths are resolved against (default: working directory)")
	fs.String("model-path", "", "Path to the ONNX model")
	fs.String("labels-path", "", "Path to the JSON label file")
	fs.String("onnx-library-path", "", "Path to the ONNX Runtime shared library")
	fs.String("log-level", "", "Log level: debug, info, warn, error")
}

// BindFlags binds every flag that was set on the command line to the viper
// key of the same name with hyphens replaced by underscores. Unset flags do
// not shadow env vars or defaults.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.Visit(func(f *pflag.Flag) {
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})
}
