//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the testbed shaders to SPIR-V.
func (Build) Shaders() error {
	if _, err := executeCmd("glslc", withArgs("shaders/shader.vert", "-o", "shaders/vert.spv"), withStream()); err != nil {
		return err
	}
	if _, err := executeCmd("glslc", withArgs("shaders/shader.frag", "-o", "shaders/frag.spv"), withStream()); err != nil {
		return err
	}
	return nil
}

// Builds the testbed binary.
func (Build) Engine() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/igloo", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs go mod tidy.
func (Build) Tidy() error {
	if _, err := executeCmd("go", withArgs("mod", "tidy"), withStream()); err != nil {
		return err
	}
	return nil
}
