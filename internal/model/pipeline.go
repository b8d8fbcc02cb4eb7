// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Pipeline structure, the root container for all
// configuration loaded from a user's .hcl files.
//
// Why have a Pipeline?
//
// The Pipeline is the top-level aggregator for one asset graph. A user might
// split a pipeline's assets across many files and directories; the loading
// functions discover every `pipeline` block with a given name and consolidate
// their assets and schedules into a single unified view. By aggregating
// everything into one place, the graph builder can resolve dependencies that
// span different files.
package model

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/fsutil"
)

// Pipeline is the format-agnostic representation of one asset graph
// definition, merged across all files that contribute to it.
type Pipeline struct {
	Name        string
	Description string
	Assets      []*Asset
	Schedules   []*Schedule
}

// hclFile represents the top-level structure of a pipeline file for decoding.
type hclFile struct {
	Pipelines []*hclPipeline `hcl:"pipeline,block"`
}

// hclPipeline represents a single `pipeline` block.
type hclPipeline struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Assets      []*hclAsset    `hcl:"asset,block"`
	Schedules   []*hclSchedule `hcl:"schedule,block"`
}

// newPipelinesFromHCL parses a single HCL file and returns the pipeline
// blocks found within it.
func newPipelinesFromHCL(filePath string, parser *hclparse.Parser) ([]*hclPipeline, error) {
	file, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
	}

	var parsedFile hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsedFile)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filePath, diags)
	}
	return parsedFile.Pipelines, nil
}

// LoadPipelinesRecursively finds and parses all HCL files under a path and
// merges blocks with the same pipeline name into one Pipeline model each.
// The returned slice preserves first-appearance order.
func LoadPipelinesRecursively(ctx context.Context, pipelinePath string) ([]*Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading pipelines from path", "path", pipelinePath)

	files, err := fsutil.FindFilesByExtension(pipelinePath, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find pipeline files in %s: %w", pipelinePath, err)
	}
	if len(files) == 0 {
		logger.Warn("No .hcl pipeline files found in path", "path", pipelinePath)
		return nil, nil
	}

	parser := hclparse.NewParser()
	byName := make(map[string]*Pipeline)
	var ordered []*Pipeline

	for _, file := range files {
		blocks, err := newPipelinesFromHCL(file, parser)
		if err != nil {
			return nil, err
		}
		for _, block := range blocks {
			pipeline, ok := byName[block.Name]
			if !ok {
				pipeline = &Pipeline{Name: block.Name}
				byName[block.Name] = pipeline
				ordered = append(ordered, pipeline)
			}
			if block.Description != "" {
				pipeline.Description = block.Description
			}
			for _, parsedAsset := range block.Assets {
				a, err := newAssetFromHCL(parsedAsset)
				if err != nil {
					return nil, fmt.Errorf("error parsing asset in file %s: %w", file, err)
				}
				pipeline.Assets = append(pipeline.Assets, a)
			}
			for _, parsedSchedule := range block.Schedules {
				s, err := newScheduleFromHCL(parsedSchedule)
				if err != nil {
					return nil, fmt.Errorf("error parsing schedule in file %s: %w", file, err)
				}
				pipeline.Schedules = append(pipeline.Schedules, s)
			}
		}
	}

	logger.Debug("Pipelines loaded", "count", len(ordered), "files", len(files))
	return ordered, nil
}
