package resolver

import (
	"encoding/binary"
	"strings"

	"solana-token-search/internal/domain"
)

// mintAccountLen is the serialized size of an SPL mint account.
const mintAccountLen = 82

// mintState is the decoded type-level state of a fungible token.
// Layout: mintAuthorityOption u32 | mintAuthority 32 | supply u64 LE |
// decimals u8 | isInitialized u8 | freezeAuthorityOption u32 | freezeAuthority 32.
type mintState struct {
	Supply      uint64
	Decimals    uint8
	Initialized bool
}

// decodeMint decodes raw account data as an SPL mint. Returns false when
// the data does not fit the mint layout.
func decodeMint(data []byte) (*mintState, bool) {
	if len(data) < mintAccountLen {
		return nil, false
	}

	state := &mintState{
		Supply:      binary.LittleEndian.Uint64(data[36:44]),
		Decimals:    data[44],
		Initialized: data[45] == 1,
	}
	if !state.Initialized {
		return nil, false
	}
	return state, true
}

// metadataHeaderLen is skipped before the length-prefixed fields.
const metadataHeaderLen = 4

// decodeMetadata parses a metadata account payload as a length-prefixed
// sequence: a 4-byte header, then [1-byte length][name], [1-byte
// length][symbol], [1-byte length][uri], consumed sequentially. Any layout
// violation yields (nil, false); callers treat that as "no metadata".
func decodeMetadata(data []byte) (*domain.TokenMetadata, bool) {
	offset := metadataHeaderLen
	if len(data) < offset {
		return nil, false
	}

	name, offset, ok := readShortString(data, offset)
	if !ok {
		return nil, false
	}
	symbol, offset, ok := readShortString(data, offset)
	if !ok {
		return nil, false
	}
	uri, _, ok := readShortString(data, offset)
	if !ok {
		return nil, false
	}

	meta := &domain.TokenMetadata{
		Name:   strings.TrimRight(name, "\x00"),
		Symbol: strings.TrimRight(symbol, "\x00"),
		URI:    strings.TrimRight(uri, "\x00"),
	}
	if meta.Name == "" && meta.Symbol == "" {
		return nil, false
	}
	return meta, true
}

// readShortString reads a [1-byte length][bytes] field at offset.
func readShortString(data []byte, offset int) (string, int, bool) {
	if offset >= len(data) {
		return "", 0, false
	}
	n := int(data[offset])
	offset++
	if offset+n > len(data) {
		return "", 0, false
	}
	return string(data[offset : offset+n]), offset + n, true
}
