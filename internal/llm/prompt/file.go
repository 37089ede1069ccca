package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a set of agent versions.
//
//	agents:
//	  - name: interviewer_agent
//	    version: v3
//	    active: true
//	    config:
//	      tools: [retrieveContext, recordMainQuestion]
//	    prompt: |
//	      You are a friendly interviewer...
type File struct {
	Agents []FileAgent `yaml:"agents"`
}

type FileAgent struct {
	Name    string      `yaml:"name"`
	Version string      `yaml:"version"`
	Active  bool        `yaml:"active"`
	Config  AgentConfig `yaml:"config"`
	Prompt  string      `yaml:"prompt"`
}

func ReadFile(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("failed to decode agents file: %w", err)
	}
	return f, nil
}

// Import creates the versions listed in f. Versions that already exist are
// left as they are, but are still activated when marked active. Import is
// safe to run on every start.
func Import(ctx context.Context, svc Service, f File) ([]Agent, error) {
	agents := make([]Agent, 0, len(f.Agents))
	for _, fa := range f.Agents {
		id := AgentID(fa.Name, fa.Version)
		agent, err := svc.Get(ctx, id)
		switch {
		case errors.Is(err, ErrNotFound):
			agent, err = svc.Create(ctx, CreateParams{
				Name:     fa.Name,
				Version:  fa.Version,
				Prompt:   fa.Prompt,
				Config:   fa.Config,
				Activate: fa.Active,
			})
			if err != nil {
				return nil, err
			}
			slog.Info("Imported agent", "name", fa.Name, "version", fa.Version, "active", fa.Active)
		case err != nil:
			return nil, err
		case fa.Active && !agent.IsActive:
			agent, err = svc.SetActive(ctx, id)
			if err != nil {
				return nil, err
			}
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

// ImportFile reads and imports the agents file at path.
func ImportFile(ctx context.Context, svc Service, path string) ([]Agent, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := ReadFile(fh)
	if err != nil {
		return nil, err
	}
	return Import(ctx, svc, f)
}
