package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// CliArgs stores the parsed command line arguments.
type CliArgs struct {
	// Command is the name of the demo being run.
	Command string

	// SourceId identifies the source for the frames for GoCV.
	// A number is a camera index; anything else is a file name or URL.
	SourceId string

	// OutputFile is where the batch commands write their video.
	OutputFile string

	// FourCCString is the codec of the output video.
	FourCCString string

	// FlipString selects how to flip the frames right after capture.
	FlipString string

	// Fx identifies the effect to apply to the source.
	Fx string

	// LogLevelString can be used to override the default log level.
	LogLevelString string

	// LogConfigFile points to an optional logging configuration file.
	LogConfigFile string

	fourcc   FourCC
	flip     FlipMode
	logLevel logrus.Level
}

func (args *CliArgs) Validate() error {
	err := args.ValidateFx()
	if err != nil {
		return err
	}

	err = args.ValidateFlip()
	if err != nil {
		return err
	}

	return args.ValidateLogLevelString()
}

// ValidateOutput is only needed by the commands writing a video file.
func (args *CliArgs) ValidateOutput() error {
	if args.OutputFile == "" {
		return errors.New("output file must not be empty")
	}

	f, err := ParseFourCC(args.FourCCString)
	if err != nil {
		return err
	}

	args.fourcc = f
	return nil
}

func (args *CliArgs) ValidateFx() error {
	switch args.Fx {
	case "none", "canny":
		return nil
	default:
		return errors.Errorf("unknown fx '%s'", args.Fx)
	}
}

func (args *CliArgs) ValidateFlip() error {
	m, err := ParseFlipMode(args.FlipString)
	if err != nil {
		return err
	}

	args.flip = m
	return nil
}

func (args *CliArgs) ValidateLogLevelString() error {
	l, err := logrus.ParseLevel(args.LogLevelString)
	if err != nil {
		return err
	}

	args.logLevel = l
	return nil
}

func NewCliArgs() *CliArgs {
	return &CliArgs{
		Command:        "",
		SourceId:       "",
		OutputFile:     "",
		FourCCString:   "",
		FlipString:     string(FlipNone),
		Fx:             "none",
		LogLevelString: "INFO",
		LogConfigFile:  defaultLogConfigFile,
		logLevel:       logrus.InfoLevel,
	}
}

type commandFunc func(context.Context, *CliArgs) error

type commandFuncs struct {
	batch   commandFunc
	capture commandFunc
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(NewCliArgs(), commandFuncs{
		batch:   batchMain,
		capture: captureMain,
	})

	err := app.RunContext(ctx, os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Application failed:", err.Error())
		stop()
		os.Exit(1)
	}
}

func newApp(args *CliArgs, run commandFuncs) *cli.App {
	flipFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:        "flip",
			Usage:       fmt.Sprintf("flip the frames after capture: [%s]", allFlipModes),
			Value:       args.FlipString,
			Destination: &args.FlipString,
		}
	}

	batchCommand := func(name, usage, fx, output, fourcc string) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			ArgsUsage: fmt.Sprintf("[SOURCE] (default: %s)", defaultFileSource),

			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "output",
					Aliases:     []string{"o"},
					Usage:       "output video file",
					Value:       output,
					Destination: &args.OutputFile,
				},
				&cli.StringFlag{
					Name:        "fourcc",
					Usage:       "four character code of the output codec",
					Value:       fourcc,
					Destination: &args.FourCCString,
				},
				flipFlag(),
			},

			Before: func(c *cli.Context) error {
				args.Command = name
				args.Fx = fx
				args.SourceId = sourceArg(c, defaultFileSource)
				if err := args.ValidateOutput(); err != nil {
					return err
				}
				return args.Validate()
			},

			Action: func(c *cli.Context) error {
				logger.Debugf("Running with arguments: %+v", *args)
				return run.batch(c.Context, args)
			},
		}
	}

	return &cli.App{
		Name:  "cvdemos",
		Usage: "OpenCV video demos",

		Before: func(c *cli.Context) error {
			cfg, err := LoadLogConfig(args.LogConfigFile)
			if err != nil {
				// A broken logging configuration must not stop the demo.
				fmt.Fprintln(c.App.ErrWriter, err.Error())
			}

			if !c.IsSet("log-level") && cfg.Level != "" {
				args.LogLevelString = cfg.Level
			}

			err = args.ValidateLogLevelString()
			if err != nil {
				return err
			}

			initLogger(args.logLevel, cfg)
			return nil
		},

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       fmt.Sprintf("log level: [%s]", allLogLevels),
				EnvVars:     []string{"CVDEMOS_LOG_LEVEL"},
				Value:       args.LogLevelString,
				Destination: &args.LogLevelString,
			},
			&cli.StringFlag{
				Name:        "log-config",
				Usage:       "optional logging configuration file",
				EnvVars:     []string{"CVDEMOS_LOG_CONFIG"},
				Value:       args.LogConfigFile,
				Destination: &args.LogConfigFile,
			},
		},

		Commands: []*cli.Command{
			batchCommand(
				"canny",
				"Write the Canny edges of the source, in the source's colors, to a video file",
				"canny",
				"output/canny-go.avi",
				"DIVX",
			),

			batchCommand(
				"writer",
				"Copy the source frame by frame to a video file",
				"none",
				"output/writer-go.avi",
				"XVID",
			),

			{
				Name:      "capture",
				Usage:     "Show the source live in a window",
				ArgsUsage: fmt.Sprintf("[SOURCE] (default: camera %s)", defaultDeviceSource),

				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "fx",
						Usage:       fmt.Sprintf("effect to apply before display: [%s]", allFx),
						Value:       args.Fx,
						Destination: &args.Fx,
					},
					flipFlag(),
				},

				Before: func(c *cli.Context) error {
					args.Command = "capture"
					args.SourceId = sourceArg(c, defaultDeviceSource)
					return args.Validate()
				},

				Action: func(c *cli.Context) error {
					logger.Debugf("Running with arguments: %+v", *args)
					return run.capture(c.Context, args)
				},
			},
		},
	}
}

func sourceArg(c *cli.Context, defaultSourceId string) string {
	if c.Args().Present() {
		return c.Args().First()
	}
	return defaultSourceId
}

func flattenErrors(errs ...error) error {
	var finalErr error
	for _, err := range errs {
		if err == nil {
			continue
		}

		if finalErr != nil {
			finalErr = errors.Errorf("%v, %v", finalErr, err)
		} else {
			finalErr = err
		}
	}
	return finalErr
}
