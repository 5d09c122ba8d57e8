package respack

import "encoding/binary"

// Language identifies a streamed sound variant. The value doubles as the
// file index into the streamed ResourceSet.
type Language uint32

const (
	LangMain Language = iota
	LangEnglish
	LangFrench
	LangItalian
	LangSpanish
)

// String returns the language name used in output paths.
func (l Language) String() string {
	switch l {
	case LangMain:
		return "main"
	case LangEnglish:
		return "english"
	case LangFrench:
		return "french"
	case LangItalian:
		return "italian"
	case LangSpanish:
		return "spanish"
	default:
		return "unknown"
	}
}

// SoundRef is a resolved byte range for one streamed sound variant. The
// payload is a raw audio container; no decoding happens here.
type SoundRef struct {
	Language Language
	Offset   uint64
	Size     uint32
}

// SoundRefs extracts streamed byte ranges from an entry's aux records.
//
// Each aux record carries an (offset, size) pair in its last eight bytes.
// One record means a single main-store payload; four records are the
// per-language variants in fixed order. Other counts carry no streamed
// payload and return ok=false.
func SoundRefs(e *Entry) ([]SoundRef, bool) {
	switch len(e.Aux) {
	case 1:
		return []SoundRef{auxRef(e.Aux[0], LangMain)}, true
	case 4:
		refs := make([]SoundRef, 4)
		for i, aux := range e.Aux {
			refs[i] = auxRef(aux, LangEnglish+Language(i))
		}
		return refs, true
	default:
		return nil, false
	}
}

func auxRef(a AuxRecord, lang Language) SoundRef {
	return SoundRef{
		Language: lang,
		Offset:   uint64(binary.BigEndian.Uint32(a.Data[16:])),
		Size:     binary.BigEndian.Uint32(a.Data[20:]),
	}
}
