package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"study-translate/internal/models"
)

// commonTargets are offered when --target is omitted on a terminal.
var commonTargets = []string{"es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh", "ar", "hi"}

var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Translate text from arguments, a file or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		target, _ := cmd.Flags().GetString("target")
		source, _ := cmd.Flags().GetString("source")
		contentType, _ := cmd.Flags().GetString("context")

		// Ask before reading stdin, which blocks until EOF on a terminal.
		target, err := resolveTarget(target, isTerminal(os.Stdin), askTarget)
		if err != nil {
			return err
		}

		text, err := readInput(args, file, cmd.InOrStdin())
		if err != nil {
			return err
		}

		resp, err := svc.Translate(cmd.Context(), models.TranslationRequest{
			Text:        text,
			TargetLang:  target,
			SourceLang:  source,
			ContextType: models.ParseContextType(contentType),
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp.TranslatedText)
		fmt.Fprintf(cmd.ErrOrStderr(), "\nmodel: %s, cached: %t\n", resp.ModelUsed, resp.Cached)
		return nil
	},
}

func readInput(args []string, file string, stdin io.Reader) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
}

func resolveTarget(target string, interactive bool, ask func() (string, error)) (string, error) {
	if target != "" {
		return target, nil
	}
	if !interactive {
		return "", errors.New("--target is required")
	}
	return ask()
}

func askTarget() (string, error) {
	var target string
	prompt := &survey.Select{
		Message: "Translate to:",
		Options: commonTargets,
		Default: commonTargets[0],
	}
	if err := survey.AskOne(prompt, &target); err != nil {
		return "", err
	}
	return target, nil
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
