package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

const NoticeFileName = "doglog_goal_ai_status.json"

const (
	NoticeModeCloud    = "cloud"
	NoticeModeFallback = "fallback"
	NoticeModeError    = "error"
)

// Notice is the outcome of the last step generation, shown once by the next
// status command.
type Notice struct {
	Mode   string `json:"mode"`
	Notice string `json:"notice"`
}

// NoticeFor turns a generation result into the message worth showing.
func NoticeFor(result *GenerationResult) Notice {
	mode := result.GenerationMode
	if mode == "" {
		mode = NoticeModeFallback
	}

	text := ""
	if result.Notice != nil {
		text = *result.Notice
	}
	if text == "" {
		if mode == NoticeModeCloud {
			text = "Goal + AI steps ready."
		} else {
			text = "Goal saved with fallback steps."
		}
	}
	return Notice{Mode: mode, Notice: text}
}

func SaveNotice(dir string, n Notice) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}

	err = atomic.WriteFile(filepath.Join(dir, NoticeFileName), bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to write notice: %w", err)
	}
	return nil
}

// TakeNotice returns the saved notice and deletes it. It returns nil when
// there is none.
func TakeNotice(dir string) (*Notice, error) {
	path := filepath.Join(dir, NoticeFileName)

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var n Notice
	err = json.Unmarshal(raw, &n)
	if err != nil {
		return nil, nil
	}
	return &n, nil
}
