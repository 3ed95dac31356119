package metastore

import (
	"github.com/golang/snappy"

	metaerrors "github.com/arkilian/infoschema/internal/errors"
)

// encodePayload compresses a queue payload for storage.
func encodePayload(value string) []byte {
	return snappy.Encode(nil, []byte(value))
}

// decodePayload reverses encodePayload. A blob that is not valid Snappy
// means the row was written by something other than this store.
func decodePayload(key string, blob []byte) (string, error) {
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return "", metaerrors.NewMetastoreError(
			metaerrors.CodeCorruptionDetected,
			"undecodable payload for queue item "+key,
			err,
		)
	}
	return string(raw), nil
}
