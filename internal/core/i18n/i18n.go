// Package i18n provides localized console messages and report labels.
package i18n

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yml
var localesFS embed.FS

// Translations holds all translation strings organized by section.
// Most values are fmt format strings.
type Translations struct {
	Split      SplitTranslations      `yaml:"split"`
	Transcribe TranscribeTranslations `yaml:"transcribe"`
	Batch      BatchTranslations      `yaml:"batch"`
	Report     ReportTranslations     `yaml:"report"`
	Stats      StatsTranslations      `yaml:"stats"`
	Prompt     PromptTranslations     `yaml:"prompt"`
	Config     ConfigTranslations     `yaml:"config"`
}

type SplitTranslations struct {
	Loading       string `yaml:"loading"`
	TotalDuration string `yaml:"total_duration"`
	Planned       string `yaml:"planned"`
	Starting      string `yaml:"starting"`
	ChunkCreated  string `yaml:"chunk_created"`
	Done          string `yaml:"done"`
	Failed        string `yaml:"failed"`
}

type TranscribeTranslations struct {
	Transcribed      string `yaml:"transcribed"`
	NoSpeech         string `yaml:"no_speech"`
	ServiceError     string `yaml:"service_error"`
	ConversionFailed string `yaml:"conversion_failed"`
	Failed           string `yaml:"failed"`
}

type BatchTranslations struct {
	LargeFile          string `yaml:"large_file"`
	SplitFailed        string `yaml:"split_failed"`
	StartChunks        string `yaml:"start_chunks"`
	ChunkProgress      string `yaml:"chunk_progress"`
	FoundFiles         string `yaml:"found_files"`
	StartFolder        string `yaml:"start_folder"`
	FileProgress       string `yaml:"file_progress"`
	NoFiles            string `yaml:"no_files"`
	Text               string `yaml:"text"`
	SkippedPlaceholder string `yaml:"skipped_placeholder"`
	CleanupDone        string `yaml:"cleanup_done"`
	CleanupDirRemoved  string `yaml:"cleanup_dir_removed"`
	CleanupKept        string `yaml:"cleanup_kept"`
	Summarizing        string `yaml:"summarizing"`
	SummaryFailed      string `yaml:"summary_failed"`
}

type ReportTranslations struct {
	SegmentsHeader string `yaml:"segments_header"`
	FullHeader     string `yaml:"full_header"`
	OriginalFile   string `yaml:"original_file"`
	Date           string `yaml:"date"`
	Segment        string `yaml:"segment"`
	Done           string `yaml:"done"`
	JSONFile       string `yaml:"json_file"`
	SegmentsFile   string `yaml:"segments_file"`
	FullFile       string `yaml:"full_file"`
	SummaryFile    string `yaml:"summary_file"`
	SummaryHeader  string `yaml:"summary_header"`
}

type StatsTranslations struct {
	Title       string `yaml:"title"`
	Total       string `yaml:"total"`
	Transcribed string `yaml:"transcribed"`
	Skipped     string `yaml:"skipped"`
	SuccessRate string `yaml:"success_rate"`
	NoSegments  string `yaml:"no_segments"`
	Words       string `yaml:"words"`
}

type PromptTranslations struct {
	Title          string   `yaml:"title"`
	Modes          string   `yaml:"modes"`
	ModeFolder     string   `yaml:"mode_folder"`
	ModeLargeFile  string   `yaml:"mode_large_file"`
	ChooseMode     string   `yaml:"choose_mode"`
	LargeFilePath  string   `yaml:"large_file_path"`
	FileMissing    string   `yaml:"file_missing"`
	ChunkMinutes   string   `yaml:"chunk_minutes"`
	InvalidMinutes string   `yaml:"invalid_minutes"`
	FolderPath     string   `yaml:"folder_path"`
	Cleanup        string   `yaml:"cleanup"`
	YesTokens      []string `yaml:"yes_tokens"`
}

type ConfigTranslations struct {
	NotFound    string `yaml:"not_found"`
	PIN         string `yaml:"pin"`
	APIKey      string `yaml:"api_key"`
	Saved       string `yaml:"saved"`
	NoAPIKey    string `yaml:"no_api_key"`
	PINRequired string `yaml:"pin_required"`
}

var (
	translationsCache = make(map[string]*Translations)
	cacheMutex        sync.RWMutex
	defaultLang       = "bg"
)

// SupportedLanguages lists the available locale codes.
var SupportedLanguages = []struct {
	Code string
	Name string
}{
	{"bg", "Български"},
	{"en", "English"},
}

// GetTranslations returns translations for the specified language,
// falling back to Bulgarian.
func GetTranslations(lang string) *Translations {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}

	cacheMutex.RLock()
	if t, ok := translationsCache[lang]; ok {
		cacheMutex.RUnlock()
		return t
	}
	cacheMutex.RUnlock()

	t, err := loadTranslations(lang)
	if err != nil {
		if lang != defaultLang {
			return GetTranslations(defaultLang)
		}
		return &Translations{}
	}

	cacheMutex.Lock()
	translationsCache[lang] = t
	cacheMutex.Unlock()

	return t
}

func loadTranslations(lang string) (*Translations, error) {
	filename := fmt.Sprintf("locales/%s.yml", lang)
	data, err := localesFS.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var t Translations
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}

	return &t, nil
}

// T is a convenience function for getting translations
func T(lang string) *Translations {
	return GetTranslations(lang)
}

// IsYes reports whether the answer is one of the locale's affirmative tokens.
// The English tokens are always accepted.
func (t *Translations) IsYes(answer string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" {
		return false
	}
	if answer == "y" || answer == "yes" {
		return true
	}
	for _, tok := range t.Prompt.YesTokens {
		if answer == strings.ToLower(tok) {
			return true
		}
	}
	return false
}
