package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/pkg/db"
	"github.com/jakechorley/taskflow-connect/pkg/notify"
)

// CreateAnnouncement posts an announcement signed with the actor's name and pushes it to everyone
func CreateAnnouncement(ctx context.Context, store db.AnnouncementStore, notifier *Notifier, logger *zap.Logger, actor *db.Volunteer, title, content string) (*db.Announcement, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, invalid("title and content are required")
	}

	a := &db.Announcement{
		ID:      newID(),
		Title:   title,
		Content: content,
		Author:  actor.Name,
		Date:    now().UTC(),
	}
	if err := store.InsertAnnouncement(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to insert announcement: %w", err)
	}

	logger.Info("Announcement posted", zap.String("announcement_id", a.ID), zap.String("author", a.Author))

	notifier.pushAll(ctx, notify.Payload{
		Title: a.Title,
		Body:  truncate(a.Content, 120),
		URL:   notifier.link("/announcements"),
		Tag:   "announcement-" + a.ID,
	})
	return a, nil
}

// ListAnnouncements returns all announcements, newest first
func ListAnnouncements(ctx context.Context, store db.AnnouncementStore) ([]db.Announcement, error) {
	announcements, err := store.GetAnnouncements(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch announcements: %w", err)
	}
	if announcements == nil {
		announcements = []db.Announcement{}
	}
	return announcements, nil
}

func DeleteAnnouncement(ctx context.Context, store db.AnnouncementStore, logger *zap.Logger, actor *db.Volunteer, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := store.DeleteAnnouncement(ctx, id); err != nil {
		return fmt.Errorf("failed to delete announcement: %w", err)
	}
	logger.Info("Announcement deleted", zap.String("announcement_id", id))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
