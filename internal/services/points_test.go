package services

import (
	"testing"
	"xunwu/internal/db"
	"xunwu/internal/models"
	"xunwu/internal/utils"
)

func TestAddPoints(t *testing.T) {
	setupTestDB(t)

	user := createTestUser(t, "walker", "")

	if err := AddPoints(user.ID, PointsItemCreate, ActionItemCreate); err != nil {
		t.Fatalf("add points: %v", err)
	}
	if err := AddPoints(user.ID, PointsItemResolved, ActionItemResolved); err != nil {
		t.Fatalf("add points: %v", err)
	}

	if got := userPoints(t, user.ID); got != PointsItemCreate+PointsItemResolved {
		t.Errorf("balance = %d, want %d", got, PointsItemCreate+PointsItemResolved)
	}

	// 每次发放都有一条明细
	var logs []models.PointLog
	db.DB.Where("user_id = ?", user.ID).Order("id").Find(&logs)
	if len(logs) != 2 {
		t.Fatalf("point logs = %d, want 2", len(logs))
	}
	if logs[0].Action != ActionItemCreate || logs[0].Amount != PointsItemCreate {
		t.Errorf("first log = %s/%d", logs[0].Action, logs[0].Amount)
	}
	if logs[1].Action != ActionItemResolved || logs[1].Amount != PointsItemResolved {
		t.Errorf("second log = %s/%d", logs[1].Action, logs[1].Amount)
	}
}

func TestAddPointsRecomputesLevel(t *testing.T) {
	setupTestDB(t)

	user := createTestUser(t, "climber", "")

	if err := AddPoints(user.ID, 60, ActionItemResolved); err != nil {
		t.Fatalf("add points: %v", err)
	}
	var reloaded models.User
	db.DB.First(&reloaded, user.ID)
	if reloaded.Level != 2 {
		t.Errorf("level at 60 points = %d, want 2", reloaded.Level)
	}

	if err := AddPoints(user.ID, 1000, ActionItemResolved); err != nil {
		t.Fatalf("add points: %v", err)
	}
	db.DB.First(&reloaded, user.ID)
	if reloaded.Level != 5 {
		t.Errorf("level at 1060 points = %d, want 5", reloaded.Level)
	}
}

func TestGetUserLevel(t *testing.T) {
	cases := []struct {
		points int
		level  int
	}{
		{0, 1},
		{49, 1},
		{50, 2},
		{199, 2},
		{200, 3},
		{499, 3},
		{500, 4},
		{999, 4},
		{1000, 5},
		{5000, 5},
	}
	for _, tc := range cases {
		level, name, icon := utils.GetUserLevel(tc.points)
		if level != tc.level {
			t.Errorf("GetUserLevel(%d) = %d, want %d", tc.points, level, tc.level)
		}
		if name == "" || icon == "" {
			t.Errorf("GetUserLevel(%d) returned empty name or icon", tc.points)
		}
	}
}
