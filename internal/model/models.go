// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"strings"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// ModelInfo names a generateContent model.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Models maps the short names accepted by --model to models. IDs missing
// from this table are still sent to the API unchanged.
var Models = map[string]ModelInfo{
	"flash":      {"gemini-2.0-flash", "Gemini 2.0 Flash"},
	"flash-lite": {"gemini-2.0-flash-lite", "Gemini 2.0 Flash-Lite"},
	"flash-2.5":  {"gemini-2.5-flash", "Gemini 2.5 Flash"},
	"pro":        {"gemini-2.5-pro", "Gemini 2.5 Pro"},
	"pro-1.5":    {"gemini-1.5-pro", "Gemini 1.5 Pro"},
}

// GetModelInfo finds a model by alias (any case) or exact ID.
func GetModelInfo(nameOrID string) (ModelInfo, bool) {
	if info, ok := Models[strings.ToLower(nameOrID)]; ok {
		return info, true
	}
	for _, info := range Models {
		if info.ID == nameOrID {
			return info, true
		}
	}
	return ModelInfo{}, false
}

// ResolveModelID turns an alias into its ID. Anything else comes back
// trimmed.
func ResolveModelID(nameOrID string) string {
	nameOrID = strings.TrimSpace(nameOrID)
	if info, ok := Models[strings.ToLower(nameOrID)]; ok {
		return info.ID
	}
	return nameOrID
}

// DisplayName returns the model's name, or id itself when it is unknown.
func DisplayName(id string) string {
	if info, ok := GetModelInfo(id); ok {
		return info.Name
	}
	return id
}

// ModelAliases returns the keys of Models in order.
func ModelAliases() []string {
	aliases := make([]string, 0, len(Models))
	for alias := range Models {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}
