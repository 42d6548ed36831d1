// Package artifacts inventories built distribution files prior to upload.
package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	sdistFileSuffixConstant              = ".tar.gz"
	wheelFileSuffixConstant              = ".whl"
	wheelNameComponentSeparatorConstant  = "-"
	wheelNameMinimumComponentCount       = 5
	wheelNameMaximumComponentCount       = 6
	distDirectoryMissingTemplateConstant = "distribution directory %s not found"
	distDirectoryReadTemplateConstant    = "unable to read distribution directory %s: %w"
	artifactDigestTemplateConstant       = "unable to digest artifact %s: %w"
	wheelNameMalformedTemplateConstant   = "malformed wheel file name %q"
	noArtifactsFoundTemplateConstant     = "no distribution artifacts found in %s"
	sdistMissingMessageConstant          = "no source distribution found among the built artifacts"
	wheelMissingMessageConstant          = "no wheel distribution found among the built artifacts"
)

// Kind classifies a distribution artifact.
type Kind string

// Artifact kind enumerations.
const (
	KindSdist Kind = "sdist"
	KindWheel Kind = "wheel"
)

// WheelName holds the components of a wheel file name.
type WheelName struct {
	Distribution string
	Version      string
	BuildTag     string
	PythonTag    string
	ABITag       string
	PlatformTag  string
}

// Artifact describes one built distribution file.
type Artifact struct {
	Path     string
	FileName string
	Kind     Kind
	Digest   string
	Wheel    *WheelName
}

// ParseWheelFileName splits a wheel file name into its tag components.
func ParseWheelFileName(fileName string) (WheelName, error) {
	if !strings.HasSuffix(fileName, wheelFileSuffixConstant) {
		return WheelName{}, fmt.Errorf(wheelNameMalformedTemplateConstant, fileName)
	}

	trimmedName := strings.TrimSuffix(fileName, wheelFileSuffixConstant)
	components := strings.Split(trimmedName, wheelNameComponentSeparatorConstant)
	if len(components) < wheelNameMinimumComponentCount || len(components) > wheelNameMaximumComponentCount {
		return WheelName{}, fmt.Errorf(wheelNameMalformedTemplateConstant, fileName)
	}

	for _, component := range components {
		if len(component) == 0 {
			return WheelName{}, fmt.Errorf(wheelNameMalformedTemplateConstant, fileName)
		}
	}

	wheelName := WheelName{
		Distribution: components[0],
		Version:      components[1],
		PythonTag:    components[len(components)-3],
		ABITag:       components[len(components)-2],
		PlatformTag:  components[len(components)-1],
	}
	if len(components) == wheelNameMaximumComponentCount {
		wheelName.BuildTag = components[2]
	}

	return wheelName, nil
}

// Collect scans the distribution directory and describes every recognized artifact.
func Collect(distDirectory string) ([]Artifact, error) {
	directoryEntries, readError := os.ReadDir(distDirectory)
	if readError != nil {
		if os.IsNotExist(readError) {
			return nil, fmt.Errorf(distDirectoryMissingTemplateConstant, distDirectory)
		}
		return nil, fmt.Errorf(distDirectoryReadTemplateConstant, distDirectory, readError)
	}

	collectedArtifacts := make([]Artifact, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		if directoryEntry.IsDir() {
			continue
		}

		entryName := directoryEntry.Name()
		artifactKind, recognized := classifyFileName(entryName)
		if !recognized {
			continue
		}

		artifactPath := filepath.Join(distDirectory, entryName)
		artifactDigest, digestError := digestFile(artifactPath)
		if digestError != nil {
			return nil, fmt.Errorf(artifactDigestTemplateConstant, artifactPath, digestError)
		}

		collectedArtifact := Artifact{
			Path:     artifactPath,
			FileName: entryName,
			Kind:     artifactKind,
			Digest:   artifactDigest,
		}

		if artifactKind == KindWheel {
			wheelName, wheelParseError := ParseWheelFileName(entryName)
			if wheelParseError != nil {
				return nil, wheelParseError
			}
			collectedArtifact.Wheel = &wheelName
		}

		collectedArtifacts = append(collectedArtifacts, collectedArtifact)
	}

	if len(collectedArtifacts) == 0 {
		return nil, fmt.Errorf(noArtifactsFoundTemplateConstant, distDirectory)
	}

	return collectedArtifacts, nil
}

// EnsurePublishable confirms the inventory contains both required distribution formats.
func EnsurePublishable(collectedArtifacts []Artifact) error {
	sdistPresent := false
	wheelPresent := false
	for _, collectedArtifact := range collectedArtifacts {
		switch collectedArtifact.Kind {
		case KindSdist:
			sdistPresent = true
		case KindWheel:
			wheelPresent = true
		}
	}

	if !sdistPresent {
		return errors.New(sdistMissingMessageConstant)
	}
	if !wheelPresent {
		return errors.New(wheelMissingMessageConstant)
	}
	return nil
}

// Paths lists the filesystem paths of the collected artifacts in inventory order.
func Paths(collectedArtifacts []Artifact) []string {
	artifactPaths := make([]string, 0, len(collectedArtifacts))
	for _, collectedArtifact := range collectedArtifacts {
		artifactPaths = append(artifactPaths, collectedArtifact.Path)
	}
	return artifactPaths
}

func classifyFileName(fileName string) (Kind, bool) {
	switch {
	case strings.HasSuffix(fileName, sdistFileSuffixConstant):
		return KindSdist, true
	case strings.HasSuffix(fileName, wheelFileSuffixConstant):
		return KindWheel, true
	default:
		return "", false
	}
}

func digestFile(filePath string) (string, error) {
	fileHandle, openError := os.Open(filePath)
	if openError != nil {
		return "", openError
	}
	defer fileHandle.Close()

	digestCalculator := sha256.New()
	if _, copyError := io.Copy(digestCalculator, fileHandle); copyError != nil {
		return "", copyError
	}

	return hex.EncodeToString(digestCalculator.Sum(nil)), nil
}
