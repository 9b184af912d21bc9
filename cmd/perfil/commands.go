package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perfil/perfil/internal/config"
)

type profilePayload struct {
	Slug        string `json:"slug"`
	DisplayName string `json:"display_name"`
	Profile     struct {
		Sections []struct {
			Header string `json:"header"`
			Text   string `json:"text"`
		} `json:"sections"`
	} `json:"profile"`
	HasMarkup bool `json:"has_markup"`
}

func printProfile(p profilePayload) {
	printStatus("Slug", "%s", p.Slug)
	printStatus("Name", "%s", p.DisplayName)
	for _, s := range p.Profile.Sections {
		fmt.Fprintf(os.Stderr, "\n%s\n%s\n", colorize(colorBold, s.Header), s.Text)
	}
	if p.HasMarkup {
		fmt.Fprintln(os.Stderr)
		printStatus("Page", "/p/%s", p.Slug)
	}
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <cv.pdf>",
	Short: "Upload a CV PDF and generate the profile",
	Long: `Upload a CV PDF and generate the profile.

Examples:
  perfil upload ./cv.pdf
  perfil upload ./cv.pdf --medium jdoe`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mediumUsername, _ := cmd.Flags().GetString("medium")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Uploading %s", args[0])
		resp, err := client.uploadPDF(cmd.Context(), args[0], mediumUsername)
		if err != nil {
			return err
		}

		var result profilePayload
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Profile generated (%d sections)", len(result.Profile.Sections))
		printProfile(result)
		return nil
	},
}

func init() {
	uploadCmd.Flags().String("medium", "", "Medium username to enrich the profile with")
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect and extend the generated profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/profile")
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			var raw json.RawMessage
			if err := decodeJSON(resp, &raw); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(raw))
			return nil
		}

		var result profilePayload
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printProfile(result)
		return nil
	},
}

var profileAugmentCmd = &cobra.Command{
	Use:   "augment <instructions>",
	Short: "Extend the profile with new information",
	Long: `Extend the profile with new information. Existing sections are kept.

Examples:
  perfil profile augment "add a section about my open source work on chi and cobra"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Augmenting profile")
		resp, err := client.post(cmd.Context(), "/profile/augment", map[string]string{
			"instructions": strings.Join(args, " "),
		})
		if err != nil {
			return err
		}

		var result profilePayload
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Profile updated (%d sections)", len(result.Profile.Sections))
		printProfile(result)
		return nil
	},
}

func init() {
	profileShowCmd.Flags().Bool("json", false, "print the raw JSON document")
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileAugmentCmd)
}

// --- render ---

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Generate the HTML page for the profile",
	Long: `Generate the HTML page for the profile.

Examples:
  perfil render
  perfil render --style "dark theme with emerald accents" --backend gemini
  perfil render -o page.html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		style, _ := cmd.Flags().GetString("style")
		backendName, _ := cmd.Flags().GetString("backend")
		out, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Rendering profile page")
		resp, err := client.post(cmd.Context(), "/profile/render", map[string]string{
			"instructions": style,
			"backend":      backendName,
		})
		if err != nil {
			return err
		}

		var result struct {
			Slug string `json:"slug"`
			HTML string `json:"html"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if out != "" {
			if err := os.WriteFile(out, []byte(result.HTML), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			printSuccess("Markup written to %s", out)
		} else {
			fmt.Fprintln(os.Stdout, result.HTML)
		}
		printStatus("Page", "/p/%s", result.Slug)
		return nil
	},
}

func init() {
	renderCmd.Flags().String("style", "", "styling instructions for the page")
	renderCmd.Flags().String("backend", "", "preferred paid backend (openai or gemini)")
	renderCmd.Flags().StringP("output", "o", "", "write the markup to a file instead of stdout")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage perfil configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, info := range config.ShowAll(cfg) {
			printStatus(info.Key, "%s  (env %s)", info.Value, info.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return fmt.Errorf("%w\nvalid keys: %s", err, strings.Join(config.ValidKeys(), ", "))
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <name> <value>",
	Short: "Store a secret in the platform secret store",
	Long: `Store a secret in the platform secret store.

Valid names: ` + strings.Join(config.SecretAccounts(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetSecret(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Stored secret %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}
