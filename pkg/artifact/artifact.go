// Package artifact persists fitted estimators and preprocessors.
//
// Each file is a gob-encoded envelope: a Header describing what was stored,
// a SHA-256 checksum of the payload, and the payload itself (the object
// encoded with encoding/gob). Writes go to a temporary file in the target
// directory and are renamed into place, so readers never observe a partially
// written artifact.
//
// To store a value held in an interface (for example a model.Regressor),
// pass a pointer to the interface to both Save and Load and make sure the
// concrete type was registered with gob.Register.
package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// FormatVersion is bumped whenever the envelope layout changes.
const FormatVersion = 1

// Kind names what an artifact contains.
type Kind string

const (
	KindModel        Kind = "model"
	KindPreprocessor Kind = "preprocessor"
)

// Meta is supplied by the caller of Save.
type Meta struct {
	Kind              Kind
	RunID             string
	SchemaFingerprint string
	// ModelName is the registry name of the estimator, empty for preprocessors.
	ModelName string
}

// Header is stored in front of every payload.
type Header struct {
	Kind              Kind
	FormatVersion     int
	RunID             string
	SchemaFingerprint string
	ModelName         string
	CreatedAt         time.Time
	GoVersion         string
}

type envelope struct {
	Header   Header
	Checksum string
	Payload  []byte
}

// now is replaced in tests.
var now = time.Now

// Save encodes obj and writes it to path, creating the parent directory and
// replacing any existing file.
func Save(path string, obj interface{}, meta Meta) (*Header, error) {
	payload, err := model.MarshalGob(obj)
	if err != nil {
		return nil, errors.NewIOFailureError("artifact.Save", path, err)
	}
	sum := sha256.Sum256(payload)
	env := envelope{
		Header: Header{
			Kind:              meta.Kind,
			FormatVersion:     FormatVersion,
			RunID:             meta.RunID,
			SchemaFingerprint: meta.SchemaFingerprint,
			ModelName:         meta.ModelName,
			CreatedAt:         now().UTC(),
			GoVersion:         runtime.Version(),
		},
		Checksum: hex.EncodeToString(sum[:]),
		Payload:  payload,
	}
	if err := writeEnvelope(path, &env); err != nil {
		return nil, err
	}
	return &env.Header, nil
}

// Load reads the artifact at path, verifies it and decodes the payload into
// into, which must be a pointer. A missing file yields an IOFailureError
// wrapping fs.ErrNotExist.
func Load(path string, into interface{}) (*Header, error) {
	env, err := readEnvelope(path)
	if err != nil {
		return nil, err
	}
	if err := model.UnmarshalGob(env.Payload, into); err != nil {
		return nil, errors.NewIOFailureError("artifact.Load", path, err)
	}
	return &env.Header, nil
}

// ReadHeader returns the header of the artifact at path after verifying its
// checksum, without decoding the payload.
func ReadHeader(path string) (*Header, error) {
	env, err := readEnvelope(path)
	if err != nil {
		return nil, err
	}
	return &env.Header, nil
}

// IsNotFound reports whether err was caused by a missing artifact file.
func IsNotFound(err error) bool {
	return errors.IsNotFound(err)
}

func writeEnvelope(path string, env *envelope) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewIOFailureError("artifact.Save", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.NewIOFailureError("artifact.Save", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = model.SaveModelToWriter(env, tmp); err != nil {
		return errors.NewIOFailureError("artifact.Save", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return errors.NewIOFailureError("artifact.Save", path, err)
	}
	if err = tmp.Close(); err != nil {
		return errors.NewIOFailureError("artifact.Save", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.NewIOFailureError("artifact.Save", path, err)
	}
	return nil
}

func readEnvelope(path string) (*envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOFailureError("artifact.Load", path, err)
	}

	var env envelope
	if err := model.LoadModelFromReader(&env, bytes.NewReader(data)); err != nil {
		return nil, errors.NewIOFailureError("artifact.Load", path, err)
	}
	if env.Header.FormatVersion != FormatVersion {
		return nil, errors.NewIOFailureError("artifact.Load", path,
			errors.Newf("unsupported format version %d (want %d)", env.Header.FormatVersion, FormatVersion))
	}
	sum := sha256.Sum256(env.Payload)
	if got := hex.EncodeToString(sum[:]); got != env.Checksum {
		return nil, errors.NewIOFailureError("artifact.Load", path,
			errors.Newf("checksum mismatch: stored %s, computed %s", env.Checksum, got))
	}
	return &env, nil
}
