// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// Collection names of the entity types the client keeps offline.
const (
	CollectionTasks  = "tasks"
	CollectionAssets = "assets"
)

// Task is a unit of work assigned to a field user.
type Task struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	AssigneeID  *int64     `json:"assigneeId,omitempty"`
	AssetID     *int64     `json:"assetId,omitempty"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
}

// Asset is a tracked physical item.
type Asset struct {
	Name     string `json:"name"`
	Tag      string `json:"tag"`
	Location string `json:"location,omitempty"`
	Status   string `json:"status,omitempty"`
	Notes    string `json:"notes,omitempty"`
}
