package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Format identifies the syntax of an exported IR file.
type Format string

// Supported IR file formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
)

// FormatOf infers the file format from its extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported IR file extension %q", filepath.Ext(path))
	}
}

// File is the on-disk layout of exported microcode. A host exporter writes
// one File per binary.
//
// Example (YAML):
//
//	functions:
//	  - name: memcpy_checked
//	    entry: 0x401000
//	    blocks:
//	      - - op: 4
//	          l: {kind: reg, size: 8}
//	          r: {kind: num, size: 8, value: 1}
//	          d: {kind: reg, size: 8}
type File struct {
	Functions []FuncDoc `yaml:"functions" json:"functions"`
}

// FuncDoc is one function as written in an IR file.
type FuncDoc struct {
	Name   string      `yaml:"name" json:"name"`
	Entry  uint64      `yaml:"entry" json:"entry"`
	Blocks [][]InsnDoc `yaml:"blocks" json:"blocks"`
}

// InsnDoc is one instruction as written in an IR file.
type InsnDoc struct {
	Op uint8       `yaml:"op" json:"op"`
	L  *OperandDoc `yaml:"l,omitempty" json:"l,omitempty"`
	R  *OperandDoc `yaml:"r,omitempty" json:"r,omitempty"`
	D  *OperandDoc `yaml:"d,omitempty" json:"d,omitempty"`
}

// OperandDoc is one operand as written in an IR file. Kind is the short
// kind name ("reg", "num", "stack", ...).
type OperandDoc struct {
	Kind    string       `yaml:"kind" json:"kind"`
	Size    int32        `yaml:"size,omitempty" json:"size,omitempty"`
	Value   uint64       `yaml:"value,omitempty" json:"value,omitempty"`
	Insn    *InsnDoc     `yaml:"insn,omitempty" json:"insn,omitempty"`
	Block   int32        `yaml:"block,omitempty" json:"block,omitempty"`
	Ref     *OperandDoc  `yaml:"ref,omitempty" json:"ref,omitempty"`
	Text    string       `yaml:"text,omitempty" json:"text,omitempty"`
	Targets []int32      `yaml:"targets,omitempty" json:"targets,omitempty"`
	Args    []OperandDoc `yaml:"args,omitempty" json:"args,omitempty"`
	Lo      *OperandDoc  `yaml:"lo,omitempty" json:"lo,omitempty"`
	Hi      *OperandDoc  `yaml:"hi,omitempty" json:"hi,omitempty"`
}

// LoadFile reads an IR file and converts every function it contains.
func LoadFile(path string) ([]Function, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read IR file: %w", err)
	}
	return Parse(data, format, path)
}

// Parse decodes IR file content. name is used in CUE positions and errors.
func Parse(data []byte, format Format, name string) ([]Function, error) {
	var doc File
	switch format {
	case FormatYAML:
		// A misspelled key would silently change the digest.
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	case FormatCUE:
		ctx := cuecontext.New()
		value := ctx.CompileBytes(data, cue.Filename(name))
		if err := value.Err(); err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		if err := value.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("unsupported IR format %q", format)
	}
	return doc.Convert()
}

// Convert turns the documents into IR functions.
func (f *File) Convert() ([]Function, error) {
	fns := make([]Function, 0, len(f.Functions))
	for i, fd := range f.Functions {
		fn, err := fd.Convert()
		if err != nil {
			return nil, fmt.Errorf("functions[%d]: %w", i, err)
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

// Convert turns one function document into an IR function.
func (fd *FuncDoc) Convert() (Function, error) {
	fn := Function{
		Entry:  fd.Entry,
		Name:   fd.Name,
		Blocks: make([]Block, len(fd.Blocks)),
	}
	for bi, insns := range fd.Blocks {
		blk := Block{Insns: make([]Instruction, len(insns))}
		for ii := range insns {
			insn, err := insns[ii].convert()
			if err != nil {
				return Function{}, fmt.Errorf("%q block %d insn %d: %w", fd.Name, bi, ii, err)
			}
			blk.Insns[ii] = insn
		}
		fn.Blocks[bi] = blk
	}
	return fn, nil
}

func (d *InsnDoc) convert() (Instruction, error) {
	insn := Instruction{Opcode: d.Op}
	var err error
	if insn.L, err = d.L.convert(); err != nil {
		return Instruction{}, fmt.Errorf("l: %w", err)
	}
	if insn.R, err = d.R.convert(); err != nil {
		return Instruction{}, fmt.Errorf("r: %w", err)
	}
	if insn.D, err = d.D.convert(); err != nil {
		return Instruction{}, fmt.Errorf("d: %w", err)
	}
	return insn, nil
}

func (d *OperandDoc) convert() (Operand, error) {
	if d == nil {
		return Operand{}, nil
	}
	kind, err := ParseKind(d.Kind)
	if err != nil {
		return Operand{}, err
	}
	op := Operand{
		Kind:    kind,
		Size:    d.Size,
		Value:   d.Value,
		Block:   d.Block,
		Text:    d.Text,
		Targets: d.Targets,
	}
	if d.Insn != nil {
		insn, err := d.Insn.convert()
		if err != nil {
			return Operand{}, fmt.Errorf("insn: %w", err)
		}
		op.Insn = &insn
	}
	if op.Ref, err = d.Ref.convertPtr(); err != nil {
		return Operand{}, fmt.Errorf("ref: %w", err)
	}
	if op.Lo, err = d.Lo.convertPtr(); err != nil {
		return Operand{}, fmt.Errorf("lo: %w", err)
	}
	if op.Hi, err = d.Hi.convertPtr(); err != nil {
		return Operand{}, fmt.Errorf("hi: %w", err)
	}
	for i := range d.Args {
		arg, err := d.Args[i].convert()
		if err != nil {
			return Operand{}, fmt.Errorf("args[%d]: %w", i, err)
		}
		op.Args = append(op.Args, arg)
	}
	return op, nil
}

func (d *OperandDoc) convertPtr() (*Operand, error) {
	if d == nil {
		return nil, nil
	}
	op, err := d.convert()
	if err != nil {
		return nil, err
	}
	return &op, nil
}
