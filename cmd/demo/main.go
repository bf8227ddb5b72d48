// cmd/demo/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/prisken/content-sub000/internal/generator"
	"github.com/prisken/content-sub000/internal/i18n"
	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/services"
	"github.com/prisken/content-sub000/internal/translator"
	"github.com/prisken/content-sub000/internal/wizard"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

type generateOptions struct {
	direction string
	platform  string
	postType  string
	source    string
	details   string
	topic     string
	tone      string
	lang      string
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "demo",
		Short:         "Drive the content wizard locally without a server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVar(&color.NoColor, "no-color", color.NoColor, "disable colored output")
	root.AddCommand(newGenerateCmd(), newPlatformsCmd(), newTopicsCmd())
	return root
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run a wizard session end to end and print the generated post",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.direction, "direction", string(models.DirectionTechnology), "content direction")
	f.StringVar(&opts.platform, "platform", string(models.PlatformTwitter), "target platform")
	f.StringVar(&opts.postType, "post-type", "", "post type (defaults to the platform's first type)")
	f.StringVar(&opts.source, "source", string(models.SourceNews), "inspiration source")
	f.StringVar(&opts.details, "details", "", "source details")
	f.StringVar(&opts.topic, "topic", "", "selected topic (defaults to the first local candidate)")
	f.StringVar(&opts.tone, "tone", string(models.ToneProfessional), "tone")
	f.StringVar(&opts.lang, "lang", string(models.LanguageEN), "output language (en|zh)")
	return cmd
}

func runGenerate(ctx context.Context, out io.Writer, opts *generateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lang := models.NormalizeLanguage(opts.lang)
	loc := i18n.MustLoad().Localizer(string(lang))

	postType := opts.postType
	if postType == "" {
		if types := models.PostTypesFor(models.Platform(opts.platform)); len(types) > 0 {
			postType = string(types[0])
		}
	}
	topic := opts.topic
	if topic == "" {
		candidates := services.LocalTopics(services.TopicRequest{
			Direction:     models.Direction(opts.direction),
			Source:        models.Source(opts.source),
			SourceDetails: opts.details,
		})
		if len(candidates) > 0 {
			topic = candidates[0].Title
		}
	}

	// 按步骤填写并前进，和网页向导走同一套校验
	sess := wizard.NewSession(uuid.NewString(), wizard.FlowClassic, lang)
	steps := []map[wizard.Field]string{
		{wizard.FieldDirection: opts.direction},
		{wizard.FieldPlatform: opts.platform, wizard.FieldPostType: postType},
		{wizard.FieldSource: opts.source, wizard.FieldSourceDetails: opts.details, wizard.FieldSelectedTopic: topic},
		{wizard.FieldTone: opts.tone},
	}
	for i, values := range steps {
		if err := sess.SetFields(values); err != nil {
			return err
		}
		if i == len(steps)-1 {
			break
		}
		if res := sess.Advance(); !res.Moved {
			return fmt.Errorf("%s", loc.T(res.MessageKey))
		}
	}
	if !sess.CanGenerate() {
		return fmt.Errorf("%s", loc.T("wizard.incomplete"))
	}

	sel := sess.Selection()
	content, err := generator.Compose(sel)
	if err != nil {
		return err
	}
	length := generator.Classify(content.Text, content.Platform)

	heading.Fprintf(out, "== %s / %s ==\n", loc.T("platform."+string(sel.Platform)), loc.T("direction."+string(sel.Direction)))
	fmt.Fprintf(out, "%s\n\n", content.Text)
	fmt.Fprint(out, loc.Tf("limit.characters", length.Characters))
	if length.Limit != nil {
		fmt.Fprintf(out, " / %d", *length.Limit)
	}
	fmt.Fprint(out, " (")
	statusColor(length.Status).Fprint(out, loc.T("limit."+string(length.Status)))
	fmt.Fprintln(out, ")")
	if len(content.Hashtags) > 0 {
		fmt.Fprintf(out, "hashtags: %s\n", strings.Join(content.Hashtags, " "))
	}

	if lang != models.LanguageEN {
		res := translator.NewService(nil, 0).Translate(ctx, content.Text, lang, models.LanguageEN)
		fmt.Fprintln(out)
		heading.Fprintf(out, "== %s (%s) ==\n", lang, res.Path)
		fmt.Fprintln(out, res.Content)
	}
	return nil
}

var heading = color.New(color.Bold)

func statusColor(status models.LimitStatus) *color.Color {
	switch status {
	case models.LimitNear:
		return color.New(color.FgYellow)
	case models.LimitOver:
		return color.New(color.FgRed, color.Bold)
	case models.LimitUnder:
		return color.New(color.FgGreen)
	default:
		return color.New(color.Reset)
	}
}

func newPlatformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List platforms, post types and character limits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PLATFORM\tPOST TYPES\tLIMIT")
			for _, p := range models.Platforms() {
				types := make([]string, 0)
				for _, pt := range models.PostTypesFor(p) {
					types = append(types, string(pt))
				}
				limit := "-"
				if n, ok := generator.Limit(p); ok {
					limit = fmt.Sprintf("%d", n)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", p, strings.Join(types, ","), limit)
			}
			return w.Flush()
		},
	}
}

func newTopicsCmd() *cobra.Command {
	var direction, source, details string
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Print the offline topic candidates for a direction and source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := services.TopicRequest{
				Direction:     models.Direction(direction),
				Source:        models.Source(source),
				SourceDetails: details,
			}
			if !req.Direction.Valid() || !req.Source.Valid() {
				return fmt.Errorf("unknown direction %q or source %q", direction, source)
			}
			for i, t := range services.LocalTopics(req) {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n   %s\n", i+1, t.Title, t.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&direction, "direction", string(models.DirectionTechnology), "content direction")
	cmd.Flags().StringVar(&source, "source", string(models.SourceNews), "inspiration source")
	cmd.Flags().StringVar(&details, "details", "", "source details")
	return cmd
}
