// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package labs

import (
	"bytes"
	_ "embed"
	"fmt"
	"maps"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pelletier/go-toml/v2"
)

//go:embed labs.toml
var defaultTable []byte

// File is the TOML representation of a lab table.
type File struct {
	Labs []Lab `toml:"lab"`
}

// Table is the read-only collection of all known labs.
type Table struct {
	labs map[int]*Lab
}

// Default returns the embedded default [Table].
func Default() (*Table, error) {
	return Parse(defaultTable)
}

// Parse parses the TOML encoded lab table.
func Parse(data []byte) (*Table, error) {
	var file File

	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	err := decoder.Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("decode lab table: %w", err)
	}

	table := &Table{labs: make(map[int]*Lab, len(file.Labs))}

	err = table.Merge(file.Labs...)
	if err != nil {
		return nil, err
	}

	return table, nil
}

// Merge adds the given labs to the table. Labs with an id already present
// replace the existing entry.
func (t *Table) Merge(labs ...Lab) error {
	if t.labs == nil {
		t.labs = make(map[int]*Lab, len(labs))
	}

	for _, lab := range labs {
		err := lab.validate()
		if err != nil {
			return err
		}

		lab.Weights = maps.Clone(lab.Weights)
		lab.Redo = slices.Clone(lab.Redo)
		t.labs[lab.ID] = &lab
	}

	return nil
}

// Lab returns the lab with the given id.
func (t *Table) Lab(id int) (*Lab, error) {
	lab, exists := t.labs[id]
	if !exists {
		return nil, fmt.Errorf("%w: lab%d", ErrUnknownLab, id)
	}

	return lab, nil
}

// IDs returns the ids of all labs in ascending order.
func (t *Table) IDs() []int {
	return slices.Sorted(maps.Keys(t.labs))
}

// CheckRedo verifies that the redo edges reachable from the given lab do not
// form a cycle and only reference known labs.
//
// It returns a [RedoCycleError] for the first cycle found.
func (t *Table) CheckRedo(id int) error {
	visiting := mapset.NewThreadUnsafeSet[int]()
	done := mapset.NewThreadUnsafeSet[int]()

	return t.checkRedo(id, nil, visiting, done)
}

func (t *Table) checkRedo(
	id int,
	path []int,
	visiting, done mapset.Set[int],
) error {
	path = append(path, id)

	if visiting.Contains(id) {
		start := slices.Index(path, id)
		return &RedoCycleError{Path: slices.Clone(path[start:])}
	}

	if done.Contains(id) {
		return nil
	}

	lab, err := t.Lab(id)
	if err != nil {
		return err
	}

	visiting.Add(id)

	for _, redo := range lab.Redo {
		err := t.checkRedo(redo.Lab, path, visiting, done)
		if err != nil {
			return err
		}
	}

	visiting.Remove(id)
	done.Add(id)

	return nil
}
