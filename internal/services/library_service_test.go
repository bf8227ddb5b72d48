package services

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/generator"
	"github.com/prisken/content-sub000/internal/i18n"
	"github.com/prisken/content-sub000/internal/models"
)

func savedPost(t *testing.T, lib *LibraryService, user string, p models.Platform, pt models.PostType) *models.Post {
	t.Helper()
	sel := sampleSelectionFor(p, pt)
	content, err := generator.Compose(sel)
	require.NoError(t, err)
	post, err := lib.SavePost(user, sel, content)
	require.NoError(t, err)
	return post
}

func TestSaveAndGetPost(t *testing.T) {
	lib := NewLibraryService(newTestStorage(t), nil, nil)

	post := savedPost(t, lib, "u1", models.PlatformTwitter, "tweets")
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "u1", post.UserID)
	assert.False(t, post.Content.CreatedAt.IsZero())

	got, err := lib.GetPost("u1", post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Content.Text, got.Content.Text)
	assert.True(t, post.CreatedAt.Equal(got.CreatedAt))

	_, err = lib.GetPost("u2", post.ID)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestSavePostValidation(t *testing.T) {
	lib := NewLibraryService(newTestStorage(t), nil, nil)

	_, err := lib.SavePost("u1", sampleSelection(), models.GeneratedContent{Text: "  "})
	assert.True(t, errors.IsValidationError(err))

	_, err = lib.SavePost("u1", models.WizardSelection{}, models.GeneratedContent{Text: "hi", Platform: "mastodon"})
	assert.Equal(t, errors.ErrorTypeUnsupportedPlatform, errors.TypeOf(err))

	_, err = lib.SavePost("", sampleSelection(), models.GeneratedContent{Text: "hi"})
	assert.True(t, errors.IsUnauthorizedError(err))
}

func TestListPostsFilterAndPaging(t *testing.T) {
	lib := NewLibraryService(newTestStorage(t), nil, nil)

	savedPost(t, lib, "u1", models.PlatformTwitter, "tweets")
	savedPost(t, lib, "u1", models.PlatformTwitter, "threads")
	savedPost(t, lib, "u1", models.PlatformLinkedIn, "posts")
	savedPost(t, lib, "u2", models.PlatformLinkedIn, "posts")

	page, err := lib.ListPosts("u1", PostListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PerPage)

	page, err = lib.ListPosts("u1", PostListQuery{Platform: models.PlatformTwitter, PageQuery: PageQuery{PerPage: 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.PlatformTwitter, page.Items[0].Content.Platform)

	_, err = lib.ListPosts("u1", PostListQuery{Platform: "myspace"})
	assert.True(t, errors.IsValidationError(err))

	empty, err := lib.ListPosts("nobody", PostListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Empty(t, empty.Items)

	total, err := lib.CountAll()
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestDeletePost(t *testing.T) {
	lib := NewLibraryService(newTestStorage(t), nil, nil)
	post := savedPost(t, lib, "u1", models.PlatformBlog, "articles")

	assert.True(t, errors.IsNotFoundError(lib.DeletePost("u2", post.ID)))
	require.NoError(t, lib.DeletePost("u1", post.ID))
	_, err := lib.GetPost("u1", post.ID)
	assert.True(t, errors.IsNotFoundError(err))

	require.NoError(t, lib.DeleteAll("u1"))
	require.NoError(t, lib.DeleteAll("never-saved"))
}

func TestSummary(t *testing.T) {
	lib := NewLibraryService(newTestStorage(t), nil, nil)

	empty, err := lib.Summary("u1")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Nil(t, empty.LastSavedAt)

	savedPost(t, lib, "u1", models.PlatformTwitter, "tweets")
	savedPost(t, lib, "u1", models.PlatformFacebook, "posts")

	sum, err := lib.Summary("u1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, map[string]int{"twitter": 1, "facebook": 1}, sum.ByPlatform)
	assert.Equal(t, map[string]int{"technology": 2}, sum.ByDirection)
	require.NotNil(t, sum.LastSavedAt)
	assert.WithinDuration(t, time.Now(), *sum.LastSavedAt, time.Minute)
}

func TestExportPost(t *testing.T) {
	lib := NewLibraryService(newTestStorage(t), nil, nil)
	post := savedPost(t, lib, "u1", models.PlatformLinkedIn, "posts")
	en := i18n.MustLoad().Localizer("en")

	md, err := lib.ExportPost("u1", post.ID, models.ExportMarkdown, en)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md.Content, "# AI at work\n"))
	assert.Contains(t, md.Content, post.Content.Text)
	assert.Equal(t, "AI at work", md.Title)
	assert.True(t, strings.HasSuffix(md.FileName, ".md"))

	html, err := lib.ExportPost("u1", post.ID, models.ExportHTML, en)
	require.NoError(t, err)
	assert.Contains(t, html.Content, "<h1>AI at work</h1>")
	assert.Contains(t, html.Content, "<title>AI at work</title>")
	assert.Contains(t, html.Content, `<html lang="en">`)

	raw, err := lib.ExportPost("u1", post.ID, models.ExportJSON, en)
	require.NoError(t, err)
	var decoded models.Post
	require.NoError(t, json.Unmarshal([]byte(raw.Content), &decoded))
	assert.Equal(t, post.ID, decoded.ID)

	doc, err := lib.ExportPost("u1", post.ID, models.ExportYAML, en)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(doc.FileName, ".yaml"))
	var manifest map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(doc.Content), &manifest))
	assert.Equal(t, post.ID, manifest["id"])
	assert.Equal(t, "AI at work", manifest["title"])
	assert.Equal(t, "linkedin", manifest["platform"])
	assert.Equal(t, post.Content.Text, manifest["text"])

	_, err = lib.ExportPost("u1", "missing", models.ExportText, en)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestExportEscapesHTML(t *testing.T) {
	exporter := NewExportService()
	post := &models.Post{
		ID:        "p1",
		Selection: models.WizardSelection{SelectedTopic: "<script>alert(1)</script>"},
		Content:   models.GeneratedContent{Text: "Hello <b>world</b>", Platform: models.PlatformBlog},
	}

	res, err := exporter.ExportPost(post, models.ExportHTML, i18n.MustLoad().Localizer("zh"))
	require.NoError(t, err)
	assert.NotContains(t, res.Content, "<script>")
	assert.Contains(t, res.Content, `<html lang="zh">`)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Content))
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Find("script").Length())
	assert.Equal(t, 0, doc.Find("body b").Length())
	assert.Equal(t, "<script>alert(1)</script>", doc.Find("title").Text())
	heading := doc.Find("h1").Text()
	assert.Contains(t, heading, "alert(1)")
	assert.NotContains(t, heading, "<")
}

func TestParseExportFormat(t *testing.T) {
	f, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, models.ExportMarkdown, f)

	f, err = ParseExportFormat("HTML")
	require.NoError(t, err)
	assert.Equal(t, models.ExportHTML, f)

	f, err = ParseExportFormat("yml")
	require.NoError(t, err)
	assert.Equal(t, models.ExportYAML, f)

	_, err = ParseExportFormat("pdf")
	assert.True(t, errors.IsValidationError(err))
}
