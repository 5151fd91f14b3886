// Package l10n provides the message catalog used for user-facing text.
package l10n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	golocale "github.com/jeandeaual/go-locale"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// LanguageSystem selects the language of the current OS user
const LanguageSystem = "system"

// Message keys
const (
	KeyStatusReady            = "status_ready"
	KeyStatusDownloading      = "status_downloading"
	KeyStatusProcessing       = "status_processing"
	KeyStatusComplete         = "status_complete"
	KeyStatusError            = "status_error"
	KeyStatusRetrying         = "status_retrying"
	KeyUnknown                = "unknown"
	KeyUnitBytes              = "unit_bytes"
	KeyUnitKB                 = "unit_kb"
	KeyUnitMB                 = "unit_mb"
	KeyUnitGB                 = "unit_gb"
	KeyUnitTB                 = "unit_tb"
	KeyUnitPB                 = "unit_pb"
	KeyTimeSeconds            = "time_seconds"
	KeyTimeMinutesSeconds     = "time_minutes_seconds"
	KeyTimeHoursMinutes       = "time_hours_minutes"
	KeyErrorInvalidRequest    = "error_invalid_request"
	KeyErrorFormatUnavailable = "error_format_unavailable"
	KeyErrorNoVideoInfo       = "error_no_video_info"
	KeyErrorExtractionFailed  = "error_extraction_failed"
	KeyErrorDownloadFailed    = "error_download_failed"
	KeyErrorUnexpected        = "error_unexpected"
	KeyErrorManifestNotFound  = "error_manifest_not_found"
	KeyErrorInvalidJSON       = "error_invalid_json"
	KeyManifestLoaded         = "manifest_loaded"
)

//go:embed locales/*.toml
var localeFiles embed.FS

// Catalog looks up localized messages for one active language
type Catalog struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	lang      string
}

// New creates a catalog for lang ("en", "ru", "pt" or "system").
// Unknown languages fall back to English.
func New(lang string) (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := fs.ReadDir(localeFiles, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	for _, e := range entries {
		name := path.Join("locales", e.Name())
		data, err := localeFiles.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}

	c := &Catalog{bundle: bundle}
	c.SetLanguage(lang)
	return c, nil
}

// MustNew is like New but panics on a broken embedded catalog
func MustNew(lang string) *Catalog {
	c, err := New(lang)
	if err != nil {
		panic(err)
	}
	return c
}

// SetLanguage switches the active language
func (c *Catalog) SetLanguage(lang string) {
	if lang == "" || lang == LanguageSystem {
		lang = SystemLanguage()
	}
	c.lang = lang
	c.localizer = i18n.NewLocalizer(c.bundle, lang, language.English.String())
}

// Language returns the active language code
func (c *Catalog) Language() string {
	return c.lang
}

// Languages returns the language codes that have a message file
func (c *Catalog) Languages() []string {
	var out []string
	for _, tag := range c.bundle.LanguageTags() {
		out = append(out, tag.String())
	}
	sort.Strings(out)
	return out
}

// Lookup returns the message for key rendered with data. Missing keys fall
// back to English and then to the key itself.
func (c *Catalog) Lookup(key string, data map[string]any) string {
	// go-i18n reports a not-found error alongside a message taken from the
	// default language, so only an empty result counts as missing
	msg, _ := c.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if msg == "" {
		return key
	}
	return msg
}

// SystemLanguage returns the base language of the OS locale, "en" if unknown
func SystemLanguage() string {
	loc, err := golocale.GetLocale()
	if err != nil || loc == "" {
		return language.English.String()
	}
	tag, err := language.Parse(strings.ReplaceAll(loc, "_", "-"))
	if err != nil {
		return language.English.String()
	}
	base, _ := tag.Base()
	return base.String()
}
