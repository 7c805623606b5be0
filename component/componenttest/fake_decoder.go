// Package componenttest provides an in-memory Decoder/DataSegmentProvider
// test double. It is not a substitute for decoding real component
// binaries (that responsibility is deliberately out of scope) but lets
// this module's own tests (and host integrators wiring a real decoder
// later) exercise the linker and instance layers without one.
package componenttest

import (
	"encoding/json"

	"github.com/wrtgo/wrtgo/component"
	"github.com/wrtgo/wrtgo/wrterr"
)

// Descriptor is the JSON-friendly shape FakeDecoder expects a
// component's "bytes" to encode: a declarative export/import list rather
// than an actual binary format.
type Descriptor struct {
	Name            string                 `json:"name"`
	Version         string                 `json:"version"`
	StartFuncName   string                 `json:"start_func_name,omitempty"`
	StartFuncParams []component.ValueType  `json:"start_func_params,omitempty"`
	Exports         []component.ExportDecl `json:"exports"`
	Imports         []component.ImportDecl `json:"imports"`
}

// Encode marshals a Descriptor to the byte form FakeDecoder.ParseComponent
// accepts.
func Encode(d Descriptor) []byte {
	b, err := json.Marshal(d)
	if err != nil {
		panic(err) // Descriptor is always JSON-marshalable; a failure here is a programmer error
	}
	return b
}

// FakeDecoder implements component.Decoder over json-encoded Descriptors.
type FakeDecoder struct{}

func (FakeDecoder) ParseComponent(bytes []byte) ([]component.ExportDecl, []component.ImportDecl, component.Metadata, error) {
	var d Descriptor
	if err := json.Unmarshal(bytes, &d); err != nil {
		return nil, nil, component.Metadata{}, wrterr.Errorf(wrterr.Parse, "fake decoder: %v", err)
	}
	meta := component.Metadata{
		Name:            d.Name,
		Version:         d.Version,
		StartFuncName:   d.StartFuncName,
		StartFuncParams: d.StartFuncParams,
	}
	return d.Exports, d.Imports, meta, nil
}

// FakeSegments implements component.DataSegmentProvider over a fixed set
// of named byte segments, indexed by position.
type FakeSegments struct {
	Segments [][]byte
	dropped  map[uint32]bool
}

func NewFakeSegments(segments ...[]byte) *FakeSegments {
	return &FakeSegments{Segments: segments, dropped: make(map[uint32]bool)}
}

func (f *FakeSegments) SizeInBytes(dataIndex uint32) (uint32, error) {
	if int(dataIndex) >= len(f.Segments) {
		return 0, wrterr.Errorf(wrterr.OutOfBounds, "segment index %d out of range", dataIndex)
	}
	return uint32(len(f.Segments[dataIndex])), nil
}

func (f *FakeSegments) Read(dataIndex uint32, offset, length uint32) ([]byte, error) {
	if int(dataIndex) >= len(f.Segments) {
		return nil, wrterr.Errorf(wrterr.OutOfBounds, "segment index %d out of range", dataIndex)
	}
	seg := f.Segments[dataIndex]
	if uint64(offset)+uint64(length) > uint64(len(seg)) {
		return nil, wrterr.Errorf(wrterr.OutOfBounds, "segment %d read out of range", dataIndex)
	}
	return seg[offset : offset+length], nil
}

func (f *FakeSegments) IsDropped(dataIndex uint32) bool {
	return f.dropped[dataIndex]
}

func (f *FakeSegments) Drop(dataIndex uint32) error {
	f.dropped[dataIndex] = true
	return nil
}
