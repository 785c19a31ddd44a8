package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ClassifyAtomData inspects the raw bytes emitted with AtomCreated and
// assigns an AtomType (§4.3 step 1: "inspect a small prefix/scheme").
//
// The ordering matters: scheme-prefixed strings (ipfs://, ens:, caip10:)
// are checked first since they're unambiguous; anything else goes through
// ClassifyResolvedContent, where JSON with a non-empty "type" field maps to
// person/organization/book/thing/account (any other type value gives
// json_object); anything left is either printable text or opaque bytes.
func ClassifyAtomData(data []byte) AtomType {
	s := string(data)
	switch {
	case strings.HasPrefix(s, "ipfs://"):
		return AtomTypeIPFS
	case strings.HasPrefix(s, "ens:"):
		return AtomTypeENS
	case strings.HasPrefix(s, "caip10:"):
		return AtomTypeCaip10
	}
	return ClassifyResolvedContent(data)
}

// ClassifyResolvedContent classifies a resolver's fetched body (§4.4
// "parse body: either raw text..., JSON manifest..., or binary"). It is
// ClassifyAtomData without the URI-scheme prefixes, since a fetched body
// is never itself a scheme-prefixed reference.
func ClassifyResolvedContent(data []byte) AtomType {
	var probe struct {
		Type string `json:"type"`
	}
	if json.Valid(data) && json.Unmarshal(data, &probe) == nil && probe.Type != "" {
		switch strings.ToLower(probe.Type) {
		case "person":
			return AtomTypePerson
		case "organization":
			return AtomTypeOrganization
		case "book":
			return AtomTypeBook
		case "thing":
			return AtomTypeThing
		case "account":
			return AtomTypeAccount
		}
		return AtomTypeJSONObject
	}

	if isPrintableText(data) {
		return AtomTypeTextObject
	}
	return AtomTypeByteObject
}

// RequiresOffChainResolution reports whether an atom of this type needs a
// resolver job (§4.3 step 4: "For off-chain types (ipfs, ens), enqueue a
// resolver job").
func RequiresOffChainResolution(t AtomType) bool {
	return t == AtomTypeIPFS || t == AtomTypeENS
}

func isPrintableText(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return false
	}
	for _, b := range data {
		if b < 0x09 || (b > 0x0d && b < 0x20) {
			return false
		}
	}
	return true
}
