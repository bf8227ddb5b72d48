package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/storage"
	"github.com/prisken/content-sub000/internal/wizard"
)

func newTestStorage(t *testing.T) *storage.FileStorage {
	t.Helper()
	fs, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	return fs
}

// completeFields 一组可以直接生成的字段
func completeFields(platform string, postType string) map[wizard.Field]string {
	return map[wizard.Field]string{
		wizard.FieldDirection:     "technology",
		wizard.FieldPlatform:      platform,
		wizard.FieldPostType:      postType,
		wizard.FieldSource:        "news",
		wizard.FieldSelectedTopic: "AI at work",
		wizard.FieldTone:          "professional",
	}
}

func sampleSelection() models.WizardSelection {
	return models.WizardSelection{
		Direction:     models.DirectionTechnology,
		Platform:      models.PlatformTwitter,
		PostType:      "tweets",
		Source:        models.SourceNews,
		SelectedTopic: "AI at work",
		Tone:          models.ToneProfessional,
		ImageStyle:    models.DefaultImageStyle,
		Language:      models.LanguageEN,
	}
}
