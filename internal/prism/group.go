package prism

import (
	"fmt"
	"strconv"

	"github.com/micrictor/flowbase/internal/policy"
	"github.com/mitchellh/mapstructure"
)

// Group is a row of the service/address group inventory.
type Group struct {
	SystemDefined string
	Name          string
	Description   string
	UUID          string
}

// CSV_HEADER matches Group.Row.
var CSV_HEADER = []string{"system_defined", "name", "description", "uuid"}

func (g Group) Row() []string {
	return []string{g.SystemDefined, g.Name, g.Description, g.UUID}
}

type wireGroup struct {
	Name          *string `mapstructure:"name"`
	Description   *string `mapstructure:"description"`
	SystemDefined *bool   `mapstructure:"is_system_defined"`
}

// DecodeGroup reads a legacy service_groups/list or address_groups/list
// entity, where the fields sit under a key named after the kind.
func DecodeGroup(kind string, rec policy.Record) (Group, error) {
	var w struct {
		UUID *string `mapstructure:"uuid"`
	}
	if err := mapstructure.Decode(rec, &w); err != nil {
		return Group{}, fmt.Errorf("decode %s: %w", kind, err)
	}
	var body wireGroup
	if err := mapstructure.Decode(rec[kind], &body); err != nil {
		return Group{}, fmt.Errorf("decode %s: %w", kind, err)
	}

	g := Group{Name: "No Name", Description: "No Description", UUID: "No UUID"}
	if body.Name != nil {
		g.Name = *body.Name
	}
	if body.Description != nil {
		g.Description = *body.Description
	}
	if w.UUID != nil {
		g.UUID = *w.UUID
	}
	if body.SystemDefined != nil {
		g.SystemDefined = strconv.FormatBool(*body.SystemDefined)
	}
	return g, nil
}
