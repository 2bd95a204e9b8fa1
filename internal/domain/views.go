/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

// Read models joined across dimension tables for the catalog pages.

type EpicView struct {
	Epic
	TeamName      string
	ActivityCount int
}

type ActivityView struct {
	Activity
	TeamName  string
	TeamType  TeamType
	EpicTitle string
	// OwnerName is empty when the activity has no owner.
	OwnerName string
}

type LeaderboardEntry struct {
	UserID        int64
	DisplayName   string
	TeamName      string
	TotalPoints   int
	KudosReceived int
}

type TeamWithMembers struct {
	Team
	Members []User
}
