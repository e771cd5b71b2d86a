package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/hashicorp/go-msgpack/codec"
)

func genMsgHashSum(data []byte) ([]byte, error) {
	msgHash := sha256.New()
	_, err := msgHash.Write(data)
	if err != nil {
		return nil, err
	}
	return msgHash.Sum(nil), nil
}

// hashInput writes the canonical form of the hashed fields: a compact JSON
// object with sorted keys. Block type and both accounts are not part of it.
func hashInput(nonce uint64, prevHash, timestamp string, amount float64) []byte {
	buf := make([]byte, 0, 160)
	buf = append(buf, `{"nonce":`...)
	buf = strconv.AppendUint(buf, nonce, 10)
	buf = append(buf, `,"prevhash":`...)
	buf = strconv.AppendQuote(buf, prevHash)
	buf = append(buf, `,"timestamp":`...)
	buf = strconv.AppendQuote(buf, timestamp)
	buf = append(buf, `,"transaction":`...)
	buf = strconv.AppendFloat(buf, amount, 'f', -1, 64)
	buf = append(buf, '}')
	return buf
}

func hashAsString(data []byte) string {
	sum, err := genMsgHashSum(data)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(sum)
}

// Encode encodes the data into msgpack bytes. It is the codec for every
// persisted form of a chain. Data can be of any type.
func Encode(data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, &codec.MsgpackHandle{})
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode decodes msgpack bytes written by Encode into the data.
// Data should be passed in the format of a pointer to a type.
func Decode(s []byte, data interface{}) error {
	dec := codec.NewDecoder(bytes.NewReader(s), &codec.MsgpackHandle{})
	return dec.Decode(data)
}
