// Command hrtfcal calibrates a personal HRTF profile and renders stems
// binaurally with it.
//
// Usage:
//
//	hrtfcal [flags] <command> [command flags] [args]
//
// Commands:
//
//	calibrate  run a localization session and save the profile
//	render     spatialize a directory of stems into a stereo WAV
//	edit       change stem directions, e.g. "vocals=30 bass=-90"
//	show       print a profile
//	angles     list the catalog azimuths per subject
//	profiles   list the stored profiles
//	stats      print per-preset localization error from the journal
//
// Settings come from HRTFCAL_* environment variables and .env; see
// internal/config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/mdobak/go-xerrors"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/cwbudde/algo-binaural/internal/app"
	"github.com/cwbudde/algo-binaural/internal/config"
	"github.com/cwbudde/algo-binaural/internal/telemetry"
	"github.com/cwbudde/algo-binaural/profile"
)

const serviceName = "hrtfcal"

func main() {
	envFile := flag.String("env", "", "dotenv file to load (default .env)")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	var dotenv []string
	if *envFile != "" {
		dotenv = append(dotenv, *envFile)
	}
	cfg, err := config.Load(dotenv...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hrtfcal: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		err := xerrors.New(err)
		logger.ErrorContext(ctx, "Failed to set up tracing.", slog.Any("error", err))
		os.Exit(1)
	}

	code := run(ctx, app.New(cfg, logger), logger, flag.Arg(0), flag.Args()[1:])

	if err := shutdown(context.WithoutCancel(ctx)); err != nil {
		err := xerrors.New(err)
		logger.ErrorContext(ctx, "Failed to flush traces.", slog.Any("error", err))
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: hrtfcal [flags] <command> [command flags] [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands: calibrate, render, edit, show, angles, profiles, stats\n\n")
	flag.PrintDefaults()
}

func run(ctx context.Context, a *app.App, logger *slog.Logger, cmd string, args []string) int {
	var err error
	switch cmd {
	case "calibrate":
		err = calibrate(ctx, a, args)
	case "render":
		err = render(ctx, a, args)
	case "edit":
		err = edit(ctx, a, args)
	case "show":
		err = show(a, args)
	case "angles":
		err = angles(a)
	case "profiles":
		err = profiles(a)
	case "stats":
		err = stats(ctx, a)
	default:
		fmt.Fprintf(os.Stderr, "hrtfcal: unknown command %q\n", cmd)
		usage()
		return 2
	}
	if err != nil {
		err := xerrors.New(err)
		logger.ErrorContext(ctx, "Command failed.", slog.String("command", cmd), slog.Any("error", err))
		return 1
	}
	return 0
}

func calibrate(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("calibrate", flag.ExitOnError)
	out := fs.String("profile", a.Config().ProfilePath, "profile file to write")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sink, err := a.Sink()
	if err != nil {
		return err
	}
	cmds, stop, err := a.Commands(ctx, os.Stdin)
	if err != nil {
		return err
	}
	defer stop()

	fmt.Println("Point to where you hear the sound.")
	fmt.Println("  w/s  coarse +/-10°    d/a  fine +/-1°    r  replay (rear only)")
	fmt.Println("  x    skip trial       q    abort          Enter  confirm")

	res, err := a.Calibrate(ctx, cmds, sink, *out)
	if err != nil {
		return err
	}
	fmt.Print(app.Summary(*out, res.Profile))
	return nil
}

func render(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	prof := fs.String("profile", a.Config().ProfilePath, "profile to render with")
	in := fs.String("in", "stems", "directory with <stem>.wav files")
	out := fs.String("out", "binaural.wav", "output WAV file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := mpb.NewWithContext(ctx, mpb.WithWidth(64))
	bar := p.AddBar(int64(len(profile.StemNames)),
		mpb.PrependDecorators(
			decor.Name("Rendering: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)

	_, err := a.Render(ctx, *prof, *in, *out, func(string, error) { bar.Increment() })
	if err != nil {
		bar.Abort(false)
	} else {
		// Only the stems present in the directory were rendered.
		bar.SetTotal(-1, true)
	}
	p.Wait()
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", *out)
	return nil
}

func edit(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	prof := fs.String("profile", a.Config().ProfilePath, "profile to edit")
	preview := fs.Bool("preview", false, "play a sweep at every new direction")
	if err := fs.Parse(args); err != nil {
		return err
	}
	changes, err := parseChanges(fs.Args())
	if err != nil {
		return err
	}

	var p *profile.Profile
	if *preview {
		sink, serr := a.Sink()
		if serr != nil {
			return serr
		}
		p, err = a.Edit(ctx, *prof, changes, sink)
	} else {
		p, err = a.Edit(ctx, *prof, changes, nil)
	}
	if err != nil {
		return err
	}
	fmt.Print(app.Summary(*prof, p))
	return nil
}

// parseChanges parses "stem=azimuth" arguments.
func parseChanges(args []string) (map[string]float64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("edit: expected stem=azimuth arguments")
	}
	changes := make(map[string]float64, len(args))
	for _, arg := range args {
		name, val, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("edit: %q is not stem=azimuth", arg)
		}
		az, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("edit: azimuth for %s: %w", name, err)
		}
		changes[strings.ToLower(strings.TrimSpace(name))] = az
	}
	return changes, nil
}

func show(a *app.App, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	prof := fs.String("profile", a.Config().ProfilePath, "profile to print")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fmt.Print(app.Summary(*prof, a.Show(*prof)))
	return nil
}

func angles(a *app.App) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SUBJECT\tCOUNT\tAZIMUTHS")
	for _, s := range a.Catalog().Subjects() {
		az := a.Catalog().Angles(s)
		parts := make([]string, len(az))
		for i, v := range az {
			parts[i] = strconv.Itoa(v)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", s, len(az), strings.Join(parts, " "))
	}
	return w.Flush()
}

func profiles(a *app.App) error {
	paths, err := a.Profiles()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROFILE\tSUBJECT\tRADIUS\tCALIBRATED")
	for _, path := range paths {
		p := a.Show(path)
		fmt.Fprintf(w, "%s\t%s (%s)\t%.2f\t%s\n", path, p.HRTFSubject, p.ReferenceLabel(), p.EffectiveRadius, p.Timestamp)
	}
	return w.Flush()
}

func stats(ctx context.Context, a *app.App) error {
	st, err := a.PresetStats(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "PRESET\tTRIALS\tMEAN ERROR\t")
	for _, s := range st {
		fmt.Fprintf(w, "%d\t%d\t%.1f°\t\n", s.Preset, s.Trials, s.MeanDeviation)
	}
	return w.Flush()
}
