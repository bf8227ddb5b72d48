package generator

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/models"
)

var techContent = models.DirectionContent{
	Focus:    "technology",
	Keywords: []string{"AI", "Automation", "Robotics", "Data", "Cloud"},
}

func TestGenerateIsDeterministic(t *testing.T) {
	for _, d := range models.Directions() {
		dc, ok := ContentFor(d)
		require.True(t, ok, d)
		for _, p := range models.Platforms() {
			first, err := Generate(p, dc, SourceSuffix(models.SourceNews, "weekly digest"))
			require.NoError(t, err)
			second, err := Generate(p, dc, SourceSuffix(models.SourceNews, "weekly digest"))
			require.NoError(t, err)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Fatalf("%s/%s not deterministic (-first +second):\n%s", d, p, diff)
			}
		}
	}
}

func TestTwitterExample(t *testing.T) {
	text, err := Generate(models.PlatformTwitter, techContent, "")
	require.NoError(t, err)

	want := "🔥 AI is changing everything in technology!\n\n" +
		"Automation + Robotics = the future 🚀\n\n" +
		"What's your take? 👇\n\n" +
		"#AI #Automation #Innovation #Trending"
	if diff := cmp.Diff(want, text); diff != "" {
		t.Errorf("twitter skeleton mismatch (-want +got):\n%s", diff)
	}

	assert.Contains(t, text, "#AI")
	assert.Contains(t, text, "#Innovation")
	assert.Contains(t, text, "#Trending")
	assert.True(t, strings.HasSuffix(text, "#Trending"))

	report := Classify(text, models.PlatformTwitter)
	require.NotNil(t, report.Limit)
	assert.Equal(t, 280, *report.Limit)
	assert.Equal(t, models.LimitUnder, report.Status)
}

func TestSuffixAppendedVerbatim(t *testing.T) {
	suffix := "\n\nSource: books (Atomic Habits)"
	for _, p := range models.Platforms() {
		text, err := Generate(p, techContent, suffix)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(text, suffix), p)
	}
}

func TestSkeletonShapes(t *testing.T) {
	cases := []struct {
		platform models.Platform
		contains []string
	}{
		{models.PlatformLinkedIn, []string{"🚀 Technology: What Every Professional Should Know", "1️⃣ AI", "3️⃣", "#Cloud"}},
		{models.PlatformFacebook, []string{"Hey friends! 👋", "💡 AI", "#Robotics"}},
		{models.PlatformInstagram, []string{"✨ Technology ✨", "🔹 Data", "Double tap", "#InstaDaily"}},
		{models.PlatformYouTubeShorts, []string{"🎬 SHORT VIDEO SCRIPT", "[HOOK - 0:00-0:03]", "• Point 3: Robotics", "#Shorts"}},
		{models.PlatformBlog, []string{"# The Complete Guide to Technology", "## Key Insights", "### 2. Automation", "## Conclusion"}},
	}
	for _, tc := range cases {
		text, err := Generate(tc.platform, techContent, "")
		require.NoError(t, err)
		for _, want := range tc.contains {
			assert.Contains(t, text, want, tc.platform)
		}
	}
	fb, _ := Generate(models.PlatformFacebook, techContent, "")
	assert.True(t, strings.HasPrefix(fb, "Hey friends! 👋"))
}

func TestUnknownPlatform(t *testing.T) {
	_, err := Generate("mastodon", techContent, "")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrUnsupportedPlatform))

	assert.Equal(t, FailureNotice, Render("mastodon", techContent, ""))
	assert.NotEqual(t, FailureNotice, Render(models.PlatformTwitter, techContent, ""))
}

func TestTooFewKeywords(t *testing.T) {
	_, err := Generate(models.PlatformTwitter, models.DirectionContent{Focus: "x", Keywords: []string{"a"}}, "")
	assert.True(t, errors.IsValidationError(err))
}

func TestToneChangesOnlyCTA(t *testing.T) {
	plain, err := Generate(models.PlatformLinkedIn, techContent, "")
	require.NoError(t, err)
	toned, err := GenerateWithTone(models.PlatformLinkedIn, techContent, "", models.ToneInspirational)
	require.NoError(t, err)

	plainLines := strings.Split(plain, "\n")
	tonedLines := strings.Split(toned, "\n")
	require.Len(t, tonedLines, len(plainLines))

	var changed []string
	for i := range plainLines {
		if plainLines[i] != tonedLines[i] {
			changed = append(changed, tonedLines[i])
		}
	}
	assert.Equal(t, []string{toneCTA[models.ToneInspirational]}, changed)

	again, _ := GenerateWithTone(models.PlatformLinkedIn, techContent, "", models.ToneInspirational)
	assert.Equal(t, toned, again)
}

func TestHashtags(t *testing.T) {
	assert.Equal(t, []string{"#CloudComputing", "#AI"}, Hashtags([]string{"Cloud Computing", "AI", "Data"}, 2))
	assert.Equal(t, []string{"#SelfCare"}, Hashtags([]string{"Self\tCare"}, 5))
	assert.Empty(t, Hashtags(nil, 3))
}

func TestExtractHashtags(t *testing.T) {
	text, err := Generate(models.PlatformBlog, techContent, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"#AI", "#Automation", "#Robotics", "#Data", "#Cloud"}, ExtractHashtags(text))
}

func TestCompose(t *testing.T) {
	sel := models.WizardSelection{
		Direction:     models.DirectionTechnology,
		Platform:      models.PlatformInstagram,
		PostType:      "reels",
		Source:        models.SourcePodcasts,
		SourceDetails: "Lex Fridman",
		SelectedTopic: "AI agents",
		Tone:          models.ToneCasual,
	}

	content, err := Compose(sel)
	require.NoError(t, err)
	assert.Equal(t, models.PlatformInstagram, content.Platform)
	assert.Equal(t, models.OriginLocal, content.Origin)
	assert.Equal(t, models.LanguageEN, content.LanguageTag)
	assert.Contains(t, content.Text, toneCTA[models.ToneCasual])
	assert.True(t, strings.HasSuffix(content.Text, "Source: podcasts (Lex Fridman)"))
	assert.Contains(t, content.Hashtags, "#CloudComputing")

	sel.Platform = "mastodon"
	_, err = Compose(sel)
	assert.Equal(t, errors.ErrorTypeUnsupportedPlatform, errors.TypeOf(err))
}

func TestSourceSuffix(t *testing.T) {
	assert.Equal(t, "", SourceSuffix("", "ignored"))
	assert.Equal(t, "\n\nSource: latest news", SourceSuffix(models.SourceNews, ""))
	assert.Equal(t, "\n\nSource: research papers (Nature)", SourceSuffix(models.SourceResearch, "Nature"))
}

func TestContentForReturnsCopy(t *testing.T) {
	dc, ok := ContentFor(models.DirectionScience)
	require.True(t, ok)
	dc.Keywords[0] = "mutated"

	again, _ := ContentFor(models.DirectionScience)
	assert.Equal(t, "Research", again.Keywords[0])

	for _, d := range models.Directions() {
		dc, ok := ContentFor(d)
		require.True(t, ok, d)
		assert.GreaterOrEqual(t, len(dc.Keywords), MinKeywords)
	}
	_, ok = ContentFor("astrology")
	assert.False(t, ok)
}
