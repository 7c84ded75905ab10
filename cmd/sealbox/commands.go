package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ameline/sealbox/internal/capture"
	"github.com/ameline/sealbox/internal/config"
	"github.com/ameline/sealbox/internal/letter"
)

// messageMeta mirrors the API's message listing shape.
type messageMeta struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	MimeType   string    `json:"mime_type"`
	Note       string    `json:"note"`
	Duration   string    `json:"duration"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
	DeliveryAt time.Time `json:"delivery_at"`
	Status     string    `json:"status"`
	Ready      bool      `json:"ready"`
	Remaining  string    `json:"remaining"`
}

func sealMessage(msgType string, blob []byte, mimeType, note, duration, delay, prep string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	req := map[string]any{
		"type":      msgType,
		"content":   base64.StdEncoding.EncodeToString(blob),
		"mime_type": mimeType,
	}
	if note != "" {
		req["note"] = note
	}
	if duration != "" {
		req["duration"] = duration
	}
	if delay != "" {
		req["delivery_delay"] = delay
	}
	if prep != "" {
		req["prep_context"] = prep
	}

	resp, err := client.post("/messages", req)
	if err != nil {
		return err
	}

	var meta messageMeta
	if err := decodeJSON(resp, &meta); err != nil {
		return err
	}

	printSuccess("Sealed %s message %s", meta.Type, meta.ID)
	printStatus("Opens", "%s (%s)", meta.DeliveryAt.Local().Format("2006-01-02 15:04"), meta.Remaining)
	return nil
}

// --- record ---

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Seal a voice message from an audio file",
	Long: `Seal a voice message from an audio file.

Examples:
  sealbox record --input ./note-to-self.webm --note "first day at the new job"
  sealbox record --input ./take.mp3 --duration 01:30 --delay 720h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		note, _ := cmd.Flags().GetString("note")
		duration, _ := cmd.Flags().GetString("duration")
		delay, _ := cmd.Flags().GetString("delay")
		prep, _ := cmd.Flags().GetString("prep")

		if input == "" {
			return fmt.Errorf("--input is required")
		}

		rec := capture.NewRecorder(&capture.FileMicrophone{Path: input})
		if err := rec.Start(cmd.Context()); err != nil {
			return fmt.Errorf("reading audio: %w", err)
		}
		a, err := rec.Stop()
		if err != nil {
			return fmt.Errorf("capturing audio: %w", err)
		}

		if duration == "" {
			duration = capture.FormatClock(a.Duration)
		}
		return sealMessage("voice", a.Blob, a.MimeType, note, duration, delay, prep)
	},
}

// --- photo ---

var photoCmd = &cobra.Command{
	Use:   "photo",
	Short: "Seal a photo message from an image file",
	Long: `Seal a photo message from an image file.

Examples:
  sealbox photo --input ./polaroid.jpg --note "the old apartment"
  sealbox photo --input ./letter-scan.jpg --enhance`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		note, _ := cmd.Flags().GetString("note")
		delay, _ := cmd.Flags().GetString("delay")
		prep, _ := cmd.Flags().GetString("prep")
		enhance, _ := cmd.Flags().GetBool("enhance")

		if input == "" {
			return fmt.Errorf("--input is required")
		}

		booth := capture.NewPhotoBooth(&capture.FileCamera{Path: input})
		a, err := booth.TakePhoto(cmd.Context())
		if err != nil {
			return fmt.Errorf("capturing photo: %w", err)
		}

		if enhance {
			printStep("Enhancing document contrast...")
			a, err = capture.EnhanceDocument(a)
			if err != nil {
				return fmt.Errorf("enhancing photo: %w", err)
			}
		}
		return sealMessage("photo", a.Blob, a.MimeType, note, "", delay, prep)
	},
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Seal a written letter from a PDF file",
	RunE: func(cmd *cobra.Command, args []string) error {
		pdfPath, _ := cmd.Flags().GetString("pdf")
		note, _ := cmd.Flags().GetString("note")
		delay, _ := cmd.Flags().GetString("delay")

		if pdfPath == "" {
			return fmt.Errorf("--pdf is required")
		}

		blob, mimeType, excerpt, err := letter.FromPDF(pdfPath)
		if err != nil {
			return fmt.Errorf("importing letter: %w", err)
		}
		if note == "" {
			note = excerpt
		}
		if note == "" {
			note = letter.Timestamped(time.Now())
		}
		return sealMessage("photo", blob, mimeType, note, "", delay, "")
	},
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sealed and delivered messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/messages")
		if err != nil {
			return err
		}

		var body struct {
			Messages []messageMeta `json:"messages"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		if len(body.Messages) == 0 {
			fmt.Println("The vault is empty.")
			return nil
		}

		for _, m := range body.Messages {
			badge := statusBadge(m)
			note := m.Note
			if note == "" {
				note = "(no note)"
			}
			fmt.Printf("%s %s  %s\n", badge, colorize(colorBold, m.ID), note)
			detail := fmt.Sprintf("%s, sealed %s", m.Type, m.CreatedAt.Local().Format("2006-01-02"))
			if m.Duration != "" {
				detail += ", " + m.Duration
			}
			if !m.Ready {
				detail += ", opens in " + m.Remaining
			}
			fmt.Printf("      %s\n", detail)
		}
		return nil
	},
}

func statusBadge(m messageMeta) string {
	switch {
	case m.Status == "viewed":
		return colorize(colorCyan, "[viewed]")
	case m.Ready:
		return colorize(colorGreen, "[ready] ")
	default:
		return colorize(colorYellow, "[sealed]")
	}
}

// --- open ---

var openCmd = &cobra.Command{
	Use:   "open <id>",
	Short: "Open a delivered message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/messages/"+args[0]+"/view", nil)
		if err != nil {
			return err
		}

		var body struct {
			Message     messageMeta `json:"message"`
			Content     string      `json:"content"`
			PrepContext string      `json:"prep_context"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		m := body.Message
		printSuccess("Opened %s message from %s", m.Type, m.CreatedAt.Local().Format("2006-01-02"))
		if m.Note != "" {
			printStatus("Note", "%s", m.Note)
		}
		if m.Duration != "" {
			printStatus("Duration", "%s", m.Duration)
		}
		if body.PrepContext != "" {
			printStatus("Context", "%s", body.PrepContext)
		}

		if output == "" {
			printStatus("Size", "%d bytes (use --output to save the payload)", m.Size)
			return nil
		}

		blob, err := base64.StdEncoding.DecodeString(body.Content)
		if err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}
		if err := os.WriteFile(output, blob, 0o644); err != nil {
			return fmt.Errorf("writing payload: %w", err)
		}
		printSuccess("Payload saved to %s", output)
		return nil
	},
}

// --- delete ---

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a message, sealed or not",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This permanently deletes the message, even if it has not been delivered yet. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete("/messages/" + args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted message %s", args[0])
		return nil
	},
}

// --- say ---

var sayCmd = &cobra.Command{
	Use:   "say <utterance>",
	Short: "Send a voice-style command to the running server",
	Long: `Send a voice-style command to the running server. Matching is fuzzy, so
close-enough phrasing works:

  sealbox say "sav message"
  sealbox say "guardar mensaje" --locale es-ES`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		locale, _ := cmd.Flags().GetString("locale")

		utterance := args[0]
		for _, a := range args[1:] {
			utterance += " " + a
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]string{"utterance": utterance}
		if locale != "" {
			req["locale"] = locale
		}
		resp, err := client.post("/command", req)
		if err != nil {
			return err
		}

		var result struct {
			Recognized  bool     `json:"recognized"`
			Action      string   `json:"action"`
			Arg         string   `json:"arg"`
			Phrase      string   `json:"phrase"`
			Similarity  float64  `json:"similarity"`
			Suggestions []string `json:"suggestions"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if !result.Recognized {
			printWarning("Command not recognized.")
			if len(result.Suggestions) > 0 {
				fmt.Println("Did you mean:")
				for _, s := range result.Suggestions {
					fmt.Printf("  %s\n", s)
				}
			}
			return nil
		}

		printSuccess("Matched %q (similarity %.2f)", result.Phrase, result.Similarity)
		action := result.Action
		if result.Arg != "" {
			action += " " + result.Arg
		}
		printStatus("Action", "%s", action)
		return nil
	},
}

// --- locale ---

var localeCmd = &cobra.Command{
	Use:   "locale [code]",
	Short: "Show or switch the command locale",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if len(args) == 1 {
			resp, err := client.post("/locale", map[string]string{"locale": args[0]})
			if err != nil {
				return err
			}
			var result map[string]string
			if err := decodeJSON(resp, &result); err != nil {
				return err
			}
			printSuccess("Locale switched to %s", result["locale"])
			return nil
		}

		resp, err := client.get("/locales")
		if err != nil {
			return err
		}
		var body struct {
			Active  string   `json:"active"`
			Locales []string `json:"locales"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}
		for _, l := range body.Locales {
			marker := "  "
			if l == body.Active {
				marker = colorize(colorGreen, "* ")
			}
			fmt.Printf("%s%s\n", marker, l)
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	recordCmd.Flags().String("input", "", "audio file to seal")
	recordCmd.Flags().String("note", "", "note shown when the message opens")
	recordCmd.Flags().String("duration", "", "recording length as mm:ss")
	recordCmd.Flags().String("delay", "", "delivery delay override (Go duration, e.g. 720h)")
	recordCmd.Flags().String("prep", "", "preparation context as JSON")

	photoCmd.Flags().String("input", "", "image file to seal")
	photoCmd.Flags().String("note", "", "note shown when the message opens")
	photoCmd.Flags().String("delay", "", "delivery delay override (Go duration, e.g. 720h)")
	photoCmd.Flags().String("prep", "", "preparation context as JSON")
	photoCmd.Flags().Bool("enhance", false, "boost contrast for document photos")

	importCmd.Flags().String("pdf", "", "PDF file to import")
	importCmd.Flags().String("note", "", "note shown when the message opens")
	importCmd.Flags().String("delay", "", "delivery delay override (Go duration, e.g. 720h)")

	openCmd.Flags().String("output", "", "write the payload to this file")

	deleteCmd.Flags().Bool("confirm", false, "confirm deletion")

	sayCmd.Flags().String("locale", "", "switch to this locale before matching")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
