// Package content holds the upload rules for media items and screenshots.
package content

import (
	"path/filepath"
	"strings"

	"github.com/Nixie-Tech-LLC/signage/internal/apperror"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

const (
	MaxMediaSize      int64 = 500 << 20
	MaxScreenshotSize int64 = 10 << 20
)

var (
	imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}
	videoExtensions = map[string]bool{".mp4": true, ".mov": true, ".avi": true, ".webm": true}
	screenshotExts  = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
)

// Classify maps a filename to its content type by extension.
func Classify(filename string) (model.ContentType, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case imageExtensions[ext]:
		return model.ContentImage, nil
	case videoExtensions[ext]:
		return model.ContentVideo, nil
	}
	return "", apperror.Validation("unsupported file type")
}

func ValidateScreenshot(filename string) error {
	if !screenshotExts[strings.ToLower(filepath.Ext(filename))] {
		return apperror.Validation("only image files are allowed for screenshots")
	}
	return nil
}

// ApplyPatch returns c with the set fields of p applied.
// Omitted fields keep their value; explicit nulls clear them. Name can never be cleared.
func ApplyPatch(c model.Content, p model.ContentPatch) (model.Content, error) {
	if p.Name.Set {
		if p.Name.Value == nil || strings.TrimSpace(*p.Name.Value) == "" {
			return c, apperror.Validation("name must not be empty")
		}
		c.Name = strings.TrimSpace(*p.Name.Value)
	}
	c.Description = p.Description.Or(c.Description)
	c.Duration = p.Duration.Or(c.Duration)
	c.StartDate = model.TimeOr(p.StartDate, c.StartDate)
	c.EndDate = model.TimeOr(p.EndDate, c.EndDate)

	if err := Validate(c); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks the metadata invariants shared by create and update.
func Validate(c model.Content) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.Validation("name is required")
	}
	if c.Duration != nil && *c.Duration < 0 {
		return apperror.Validation("duration must not be negative")
	}
	if c.StartDate != nil && c.EndDate != nil && !c.EndDate.After(*c.StartDate) {
		return apperror.Validation("endDate must be after startDate")
	}
	return nil
}
