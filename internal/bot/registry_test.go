package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

// stubModule is a Module that does nothing.
type stubModule struct {
	name          string
	commands      []*discordgo.ApplicationCommand
	handlers      map[string]InteractionHandler
	eventHandlers []EventHandler
	initErr       error
	shutErr       error
}

func (m *stubModule) Name() string                                   { return m.name }
func (m *stubModule) Commands() []*discordgo.ApplicationCommand      { return m.commands }
func (m *stubModule) CommandHandlers() map[string]InteractionHandler { return m.handlers }
func (m *stubModule) EventHandlers() []EventHandler                  { return m.eventHandlers }
func (m *stubModule) Init(ModuleDependencies) error                  { return m.initErr }
func (m *stubModule) Shutdown() error                                { return m.shutErr }

func moduleNames(modules []Module) []string {
	names := make([]string, len(modules))
	for idx, mod := range modules {
		names[idx] = mod.Name()
	}
	return names
}

func TestRegistry_PreservesRegistrationOrder(t *testing.T) {
	tests := []struct {
		name  string
		names []string
	}{
		{name: "empty"},
		{name: "single", names: []string{"basic"}},
		{name: "several", names: []string{"music_player", "basic", "moderation"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			for _, name := range tt.names {
				reg.Register(&stubModule{name: name})
			}

			got := moduleNames(reg.Modules())
			if len(got) != len(tt.names) {
				t.Fatalf("Modules() = %v, want %v", got, tt.names)
			}
			for idx := range got {
				if got[idx] != tt.names[idx] {
					t.Errorf("Modules()[%d] = %q, want %q", idx, got[idx], tt.names[idx])
				}
			}
		})
	}
}

func TestRegistry_ModulesIsACopy(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubModule{name: "basic"})

	snapshot := reg.Modules()
	snapshot[0] = &stubModule{name: "replaced"}
	reg.Register(&stubModule{name: "music_player"})

	if got := moduleNames(reg.Modules()); got[0] != "basic" || len(got) != 2 {
		t.Errorf("Modules() = %v, want [basic music_player]", got)
	}
	if len(snapshot) != 1 {
		t.Errorf("snapshot grew to %d modules", len(snapshot))
	}
}

func TestRegistry_RegisterDuplicatePanics(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubModule{name: "music_player"})

	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	reg.Register(&stubModule{name: "music_player"})
}

func TestGlobalRegistry(t *testing.T) {
	ResetGlobalRegistry()
	t.Cleanup(ResetGlobalRegistry)

	Register(&stubModule{name: "basic"})

	if got := moduleNames(Modules()); len(got) != 1 || got[0] != "basic" {
		t.Errorf("Modules() = %v, want [basic]", got)
	}
}
