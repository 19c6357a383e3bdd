package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/voicify-tts/internal/client"
	"github.com/dgnsrekt/voicify-tts/internal/logging"
)

const defaultServerURL = "http://localhost:8001"

type clientOptions struct {
	url      string
	timeout  time.Duration
	logLevel string
}

func addClientFlags(cmd *cobra.Command, opts *clientOptions) {
	cmd.Flags().StringVar(&opts.url, "url", defaultServerURL, "server base URL")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "request timeout")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level")
}

func (o clientOptions) client() *client.Client {
	return client.New(o.url, o.timeout, logging.New(o.logLevel, "text"))
}

func newSpeakCommand() *cobra.Command {
	var (
		opts clientOptions
		text string
		out  string
	)

	cmd := &cobra.Command{
		Use:   "speak",
		Short: "Synthesize text on a running server and save the audio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if text == "" {
				return errors.New("--text is required")
			}

			speech, err := opts.client().Synthesize(cmd.Context(), text)
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path = speech.Filename
			}
			if path == "" {
				path = "speech.wav"
			}

			if err := os.WriteFile(path, speech.Data, 0o644); err != nil {
				return fmt.Errorf("write audio: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes (%s) to %s\n", len(speech.Data), speech.ContentType, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "text to synthesize")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: server-chosen name)")
	addClientFlags(cmd, &opts)

	return cmd
}
