package describe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/mar-update-server/internal/config"
	"github.com/oshokin/mar-update-server/internal/encoding/updatexml"
	"github.com/oshokin/mar-update-server/internal/logger"
	"github.com/oshokin/mar-update-server/internal/service/descriptor"
)

// Options contains inputs for the describe entry point.
type Options struct {
	// ConfigPath is an optional path to the settings YAML file.
	ConfigPath string
	// ArchivePath is the MAR archive to describe.
	ArchivePath string
	// OutputPath receives the document. Empty means Stdout.
	OutputPath string
	// Check parses the rendered document back and compares it with the descriptor.
	Check bool
	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// outputFilePermissions is the permission of the written update.xml.
const outputFilePermissions = 0o644

// errRoundTripMismatch is returned by the check when the parsed document differs.
var errRoundTripMismatch = errors.New("parsed document differs from the descriptor")

// Run renders the update document of the archive.
func Run(ctx context.Context, opts *Options) error {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}

	if stderr == nil {
		stderr = os.Stderr
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = logger.Configure(settings.LogLevel, ""); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	// Stdout may carry the document, keep log lines off it.
	ctx = logger.ToContext(ctx, logger.NewWithSink(zapcore.AddSync(stderr), nil))
	ctx = logger.WithName(ctx, "describe")

	catalog, err := descriptor.Build(ctx, opts.ArchivePath, descriptor.Options{
		DownloadURL:    settings.DownloadURL,
		DefaultVersion: settings.DefaultVersion,
		DefaultBuildID: settings.DefaultBuildID,
	})
	if err != nil {
		return fmt.Errorf("describe archive: %w", err)
	}

	document, err := updatexml.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("serialize update document: %w", err)
	}

	if opts.Check {
		if err = checkRoundTrip(document); err != nil {
			return fmt.Errorf("check update document: %w", err)
		}

		logger.Info(ctx, "Update document parses back into the same descriptor")
	}

	if opts.OutputPath == "" {
		if _, err = fmt.Fprintln(stdout, string(document)); err != nil {
			return fmt.Errorf("write update document: %w", err)
		}

		return nil
	}

	outputPath := filepath.Clean(opts.OutputPath)
	if err = os.WriteFile(outputPath, document, outputFilePermissions); err != nil {
		return fmt.Errorf("write update document: %w", err)
	}

	logger.InfoKV(ctx, "Saved update document", "path", outputPath, "bytes", len(document))

	return nil
}

// checkRoundTrip parses document and renders it again. Comparing documents
// rather than structs keeps empty and nil sequences equivalent.
func checkRoundTrip(document []byte) error {
	parsed, err := updatexml.Unmarshal(document)
	if err != nil {
		return err
	}

	rendered, err := updatexml.Marshal(parsed)
	if err != nil {
		return err
	}

	if !bytes.Equal(document, rendered) {
		return errRoundTripMismatch
	}

	return nil
}
