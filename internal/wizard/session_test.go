package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/models"
)

func fillClassic(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.SetField(FieldDirection, "technology"))
	require.True(t, s.Advance().Moved)
	require.NoError(t, s.SetField(FieldPlatform, "twitter"))
	require.NoError(t, s.SetField(FieldPostType, "tweets"))
	require.True(t, s.Advance().Moved)
	require.NoError(t, s.SetField(FieldSource, "news"))
	require.NoError(t, s.SetField(FieldSelectedTopic, "AI in healthcare"))
	require.True(t, s.Advance().Moved)
	require.NoError(t, s.SetField(FieldTone, "casual"))
}

func TestNewSessionStartsAtStepOne(t *testing.T) {
	s := NewSession("s1", FlowClassic, models.LanguageZH)

	assert.Equal(t, 1, s.Step())
	assert.Equal(t, models.DefaultImageStyle, s.Selection().ImageStyle)
	assert.Equal(t, models.LanguageZH, s.Selection().Language)
	assert.False(t, s.Complete())
	assert.Equal(t, 4, FlowClassic.Steps())
	assert.Equal(t, 5, FlowGuided.Steps())
}

func TestAdvanceWithEmptyDirectionIsNoop(t *testing.T) {
	s := NewSession("s1", FlowClassic, models.LanguageEN)
	before := s.Snapshot()

	res := s.Advance()

	assert.False(t, res.Moved)
	assert.Equal(t, 1, res.Step)
	assert.Equal(t, FieldDirection, res.MissingField)
	assert.Equal(t, "wizard.missing.direction", res.MessageKey)
	assert.Equal(t, before, s.Snapshot())
}

func TestAdvanceNoopWhenOwnedFieldEmpty(t *testing.T) {
	for _, flow := range []Flow{FlowClassic, FlowGuided} {
		t.Run(string(flow), func(t *testing.T) {
			s := NewSession("s", flow, models.LanguageEN)
			fills := []struct {
				field Field
				value string
			}{
				{FieldDirection, "science"},
				{FieldPlatform, "linkedin"},
				{FieldPostType, "articles"},
				{FieldSource, "books"},
				{FieldSelectedTopic, "Quantum biology"},
				{FieldTone, "serious"},
			}

			for step := 1; step < flow.Steps(); step++ {
				// 每一步先在字段为空时尝试前进
				before := s.Snapshot()
				res := s.Advance()
				assert.False(t, res.Moved, "step %d", step)
				assert.NotEmpty(t, res.MissingField)
				assert.Equal(t, before, s.Snapshot())

				for _, f := range s.StepFields() {
					for _, fill := range fills {
						if fill.field == f {
							require.NoError(t, s.SetField(f, fill.value))
						}
					}
				}
				require.True(t, s.Advance().Moved)
			}
			require.NoError(t, s.SetField(FieldTone, "serious"))
			assert.True(t, s.CanGenerate())
		})
	}
}

func TestGuidedFlowSplitsSourceAndTopic(t *testing.T) {
	s := NewSession("g", FlowGuided, models.LanguageEN)
	require.NoError(t, s.SetField(FieldDirection, "education"))
	require.True(t, s.Advance().Moved)
	require.NoError(t, s.SetField(FieldPlatform, "blog"))
	require.NoError(t, s.SetField(FieldPostType, "articles"))
	require.True(t, s.Advance().Moved)

	require.NoError(t, s.SetField(FieldSource, "trends"))
	assert.True(t, s.Advance().Moved, "topic is owned by step 4 in the guided flow")

	res := s.Advance()
	assert.False(t, res.Moved)
	assert.Equal(t, FieldSelectedTopic, res.MissingField)
}

func TestAdvanceAtLastStep(t *testing.T) {
	s := NewSession("s", FlowClassic, models.LanguageEN)
	fillClassic(t, s)

	res := s.Advance()
	assert.False(t, res.Moved)
	assert.Equal(t, 4, s.Step())
	assert.Equal(t, "wizard.last_step", res.MessageKey)
	assert.True(t, s.CanGenerate())
}

func TestRetreatKeepsSelection(t *testing.T) {
	s := NewSession("s", FlowClassic, models.LanguageEN)
	assert.False(t, s.Retreat())

	fillClassic(t, s)
	sel := s.Selection()

	for i := 0; i < 3; i++ {
		assert.True(t, s.Retreat())
	}
	assert.False(t, s.Retreat())
	assert.Equal(t, 1, s.Step())
	assert.Equal(t, sel, s.Selection())
	assert.True(t, s.Complete())
	assert.False(t, s.CanGenerate())
}

func TestSetPlatformClearsPostType(t *testing.T) {
	for _, prior := range []struct {
		platform string
		postType string
	}{
		{"linkedin", "articles"},
		{"instagram", "reels"},
		{"twitter", "threads"},
	} {
		for _, next := range models.Platforms() {
			s := NewSession("s", FlowClassic, models.LanguageEN)
			require.NoError(t, s.SetField(FieldPlatform, prior.platform))
			require.NoError(t, s.SetField(FieldPostType, prior.postType))

			require.NoError(t, s.SetField(FieldPlatform, string(next)))
			assert.Empty(t, s.Selection().PostType)
		}
	}
}

func TestSetSourceClearsTopicAndDetails(t *testing.T) {
	s := NewSession("s", FlowClassic, models.LanguageEN)
	require.NoError(t, s.SetField(FieldSource, "books"))
	require.NoError(t, s.SetField(FieldSourceDetails, "Atomic Habits"))
	require.NoError(t, s.SetField(FieldSelectedTopic, "Habit stacking"))

	require.NoError(t, s.SetField(FieldSource, "podcasts"))

	sel := s.Selection()
	assert.Equal(t, models.SourcePodcasts, sel.Source)
	assert.Empty(t, sel.SourceDetails)
	assert.Empty(t, sel.SelectedTopic)
}

func TestSetFieldRejectsInvalidValues(t *testing.T) {
	s := NewSession("s", FlowClassic, models.LanguageEN)
	require.NoError(t, s.SetField(FieldPlatform, "twitter"))
	before := s.Selection()

	cases := []struct {
		field Field
		value string
	}{
		{FieldDirection, "astrology"},
		{FieldPlatform, "mastodon"},
		{FieldPostType, "reels"},
		{FieldSource, "rumours"},
		{FieldTone, "angry"},
		{FieldImageStyle, "cubist"},
		{FieldLanguage, "fr"},
		{Field("colour"), "blue"},
	}
	for _, tc := range cases {
		err := s.SetField(tc.field, tc.value)
		require.Error(t, err, "%s=%s", tc.field, tc.value)
		assert.True(t, errors.IsValidationError(err))
		assert.Equal(t, before, s.Selection())
	}
}

func TestPostTypeNeedsPlatform(t *testing.T) {
	s := NewSession("s", FlowClassic, models.LanguageEN)
	assert.Error(t, s.SetField(FieldPostType, "posts"))
}

func TestResetKeepsLanguage(t *testing.T) {
	s := NewSession("s", FlowClassic, models.LanguageZH)
	fillClassic(t, s)
	require.NoError(t, s.SetField(FieldImageStyle, "vibrant"))

	s.Reset()

	assert.Equal(t, 1, s.Step())
	assert.Equal(t, models.WizardSelection{
		ImageStyle: models.DefaultImageStyle,
		Language:   models.LanguageZH,
	}, s.Selection())
}

func TestParseFlow(t *testing.T) {
	f, err := ParseFlow("")
	require.NoError(t, err)
	assert.Equal(t, FlowClassic, f)

	f, err = ParseFlow("Guided")
	require.NoError(t, err)
	assert.Equal(t, FlowGuided, f)

	_, err = ParseFlow("wizard-9000")
	assert.True(t, errors.IsValidationError(err))
}

func TestSetFieldsAppliesPlatformBeforePostType(t *testing.T) {
	s := NewSession("s", FlowClassic, models.LanguageEN)

	err := s.SetFields(map[Field]string{
		FieldPostType: "tweets",
		FieldPlatform: "twitter",
		FieldTone:     "casual",
	})
	require.NoError(t, err)

	sel := s.Selection()
	assert.Equal(t, models.Platform("twitter"), sel.Platform)
	assert.Equal(t, models.PostType("tweets"), sel.PostType)
	assert.Equal(t, models.Tone("casual"), sel.Tone)
}

func TestSetFieldsRollsBackOnError(t *testing.T) {
	s := NewSession("s", FlowClassic, models.LanguageEN)
	require.NoError(t, s.SetField(FieldDirection, "science"))
	before := s.Selection()

	err := s.SetFields(map[Field]string{
		FieldDirection: "technology",
		FieldTone:      "sarcastic",
	})
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, before, s.Selection())

	err = s.SetFields(map[Field]string{"colour": "red"})
	assert.True(t, errors.IsValidationError(err))
}
