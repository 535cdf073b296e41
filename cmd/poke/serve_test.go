package main

import (
	"testing"

	"github.com/haasonsaas/nexus/internal/config"
)

func TestOverrideTableGetSet(t *testing.T) {
	initial := map[string]config.AgentOverride{"researcher": {Model: "gpt-4o-mini"}}
	table := newOverrideTable(initial)

	got := table.get()
	if got["researcher"].Model != "gpt-4o-mini" {
		t.Fatalf("expected initial override to be visible, got %+v", got)
	}

	table.set(map[string]config.AgentOverride{"researcher": {Model: "gpt-4o"}})
	got = table.get()
	if got["researcher"].Model != "gpt-4o" {
		t.Fatalf("expected updated override after set, got %+v", got)
	}
}

func TestBuildProviderRejectsUnknown(t *testing.T) {
	_, err := buildProvider(config.LLMConfig{Provider: "not-a-real-provider"})
	if err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}

func TestBuildTriggerStoreMemory(t *testing.T) {
	store, execStore, closeFn, err := buildTriggerStore(config.SchedulerConfig{Store: "memory"})
	defer closeFn()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store == nil || execStore == nil {
		t.Fatal("expected non-nil store and execution store")
	}
}

func TestBuildTriggerStoreRejectsUnknown(t *testing.T) {
	_, _, closeFn, err := buildTriggerStore(config.SchedulerConfig{Store: "bogus"})
	defer closeFn()
	if err == nil {
		t.Fatal("expected an error for an unknown scheduler store")
	}
}
