// uvatlas cuts triangle meshes into charts and packs them into texture atlases.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/uvatlas/internal/config"
	"github.com/Faultbox/uvatlas/internal/logger"
	"github.com/Faultbox/uvatlas/internal/meshgen"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "generate", "gen":
		cmdGenerate(args)
	case "demo":
		cmdDemo(args)
	case "info":
		cmdInfo(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`uvatlas - UV atlas generator

Usage:
  uvatlas <command> [options]

Commands:
  generate [options] <mesh.obj>...   Generate an atlas for one or more OBJ meshes
  demo [options]                     Generate an atlas for a procedural mesh
  info <mesh.obj>...                 Show mesh statistics
  config [-save path]                Print or save the effective configuration

Procedural meshes: %v

Examples:
  uvatlas generate -out build -formats obj,glb -preview model.obj
  uvatlas demo -mesh torus -detail 24 -resolution 512
  uvatlas config -save uvatlas.yaml
`, meshgen.Names())
}

// setup loads the configuration and initializes the global logger.
func setup(fs *flag.FlagSet, flags *config.Flags, args []string) *config.Config {
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	opts := cfg.LoggerOptions()
	opts.Console = os.Stderr
	if err := logger.InitWithOptions(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	logger.Sugar.Debugf("Config: %+v", cfg)
	return cfg
}

func cmdGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	cfg := setup(fs, flags, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: uvatlas generate [options] <mesh.obj>...")
		os.Exit(1)
	}

	inputs, err := loadInputs(fs.Args())
	if err != nil {
		logger.Error("failed to load meshes", zap.Error(err))
		os.Exit(1)
	}
	if err := run(cfg, inputs); err != nil {
		logger.Error("generation failed", zap.Error(err))
		os.Exit(1)
	}
}

func cmdDemo(args []string) {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	name := fs.String("mesh", "sphere", "Procedural mesh to generate")
	detail := fs.Int("detail", 16, "Tessellation detail (at least 2)")
	flags := config.RegisterFlags(fs)
	cfg := setup(fs, flags, args)
	defer logger.Sync()

	in, err := demoInput(*name, *detail)
	if err != nil {
		logger.Error("failed to build demo mesh", zap.Error(err))
		os.Exit(1)
	}
	if err := run(cfg, []*input{in}); err != nil {
		logger.Error("generation failed", zap.Error(err))
		os.Exit(1)
	}
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: uvatlas info <mesh.obj>...")
		os.Exit(1)
	}

	inputs, err := loadInputs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, in := range inputs {
		printInfo(os.Stdout, in)
	}
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	save := fs.String("save", "", "Write the configuration to this path")
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if *save != "" {
		if err := cfg.SaveTo(*save); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved configuration to %s\n", *save)
		return
	}

	data, err := cfg.Marshal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(data)
}
