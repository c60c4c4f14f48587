package domain

import (
	"path/filepath"
	"strings"
)

type ArtifactKind string

const (
	ArtifactAudio  ArtifactKind = "audio"
	ArtifactVideo  ArtifactKind = "video"
	ArtifactPDF    ArtifactKind = "pdf"
	ArtifactDOCX   ArtifactKind = "docx"
	ArtifactManual ArtifactKind = "manual"
)

var kindByExt = map[string]ArtifactKind{
	".mp3":  ArtifactAudio,
	".wav":  ArtifactAudio,
	".mp4":  ArtifactVideo,
	".mov":  ArtifactVideo,
	".avi":  ArtifactVideo,
	".pdf":  ArtifactPDF,
	".docx": ArtifactDOCX,
}

// KindFromFilename derives the artifact kind from the file extension.
func KindFromFilename(name string) (ArtifactKind, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	if k, ok := kindByExt[ext]; ok {
		return k, nil
	}
	return "", &UnsupportedKindError{Name: name, Ext: ext}
}

// SupportedExtensions lists accepted upload extensions in a stable order.
func SupportedExtensions() []string {
	return []string{".mp3", ".wav", ".mp4", ".mov", ".avi", ".pdf", ".docx"}
}

// Artifact is one uploaded file. Manual text never becomes an Artifact; it is
// passed to the assembler separately so it always lands last.
type Artifact struct {
	Name string       `json:"name"`
	Path string       `json:"path"`
	Kind ArtifactKind `json:"kind"`
}

// NewArtifact tags a stored upload with its kind.
func NewArtifact(name, path string) (Artifact, error) {
	kind, err := KindFromFilename(name)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Name: name, Path: path, Kind: kind}, nil
}
