package repository

import (
	"context"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pingline/internal/domain/entity"
	"pingline/internal/domain/repository"
	"pingline/pkg/errors"
	"pingline/pkg/logger"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

// Windows are queried newest-first with a plain limit and reversed in memory,
// which is the tail of the ascending range without needing limit-to-last.
func (r *firestoreMessageRepository) LatestWindow(ctx context.Context, roomID string, n int) ([]*entity.Message, error) {
	query := r.client.Collection("messages").
		Where("chatRoomId", "==", roomID).
		OrderBy("time", firestore.Desc).
		Limit(n)

	return r.fetchAscending(ctx, query)
}

func (r *firestoreMessageRepository) WindowBefore(ctx context.Context, roomID string, before time.Time, n int) ([]*entity.Message, error) {
	query := r.client.Collection("messages").
		Where("chatRoomId", "==", roomID).
		Where("time", "<", before).
		OrderBy("time", firestore.Desc).
		Limit(n)

	return r.fetchAscending(ctx, query)
}

func (r *firestoreMessageRepository) fetchAscending(ctx context.Context, query firestore.Query) ([]*entity.Message, error) {
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to fetch messages", err)
	}

	messages := make([]*entity.Message, 0, len(docs))
	for i := len(docs) - 1; i >= 0; i-- {
		var msg entity.Message
		if err := docs[i].DataTo(&msg); err != nil {
			logger.Warn("Skipping malformed message document %s: %v", docs[i].Ref.ID, err)
			continue
		}
		msg.ID = docs[i].Ref.ID
		messages = append(messages, &msg)
	}

	return messages, nil
}

// Send writes the message and the chatroom summary update in one transaction,
// so the room's preview and unread counter can never disagree with its
// message log.
func (r *firestoreMessageRepository) Send(ctx context.Context, msg *entity.Message, recipientID string) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	preview := msg.Content
	if preview == "" && msg.Image != "" {
		preview = "Image"
	}

	msgRef := r.client.Collection("messages").Doc(msg.ID)
	roomRef := r.client.Collection("chatrooms").Doc(msg.ChatRoomID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(msgRef, msg); err != nil {
			return err
		}
		return tx.Update(roomRef, []firestore.Update{
			{Path: "lastMessage", Value: preview},
			{Path: "timestamp", Value: firestore.ServerTimestamp},
			{FieldPath: firestore.FieldPath{"unreadCounts", recipientID}, Value: firestore.Increment(1)},
		})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chatroom", err)
		}
		return errors.Internal("Failed to send message", err)
	}

	return nil
}

// MarkRead appends the user to each message's read set in a single batch.
// ArrayUnion keeps the set free of duplicates, so re-running the pass on an
// already-read message changes nothing.
func (r *firestoreMessageRepository) MarkRead(ctx context.Context, messageIDs []string, userID string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(messageIDs))
	for _, id := range messageIDs {
		ref := r.client.Collection("messages").Doc(id)
		job, err := bw.Update(ref, []firestore.Update{
			{Path: "readBy", Value: firestore.ArrayUnion(userID)},
		})
		if err != nil {
			bw.End()
			return errors.Internal("Failed to enqueue read-status update", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return errors.Internal("Failed to update read status", err)
		}
	}

	return nil
}

func (r *firestoreMessageRepository) Subscribe(ctx context.Context, roomID string, n int) (repository.MessageSubscription, error) {
	query := r.client.Collection("messages").
		Where("chatRoomId", "==", roomID).
		OrderBy("time", firestore.Desc).
		Limit(n)

	sub := &firestoreMessageSubscription{
		snaps:   query.Snapshots(ctx),
		updates: make(chan []*entity.Message, 1),
		done:    make(chan struct{}),
	}
	go sub.run()

	return sub, nil
}

// firestoreMessageSubscription wraps a Firestore snapshot listener. Each
// snapshot carries the full current result set for the query.
type firestoreMessageSubscription struct {
	snaps   *firestore.QuerySnapshotIterator
	updates chan []*entity.Message

	mu   sync.Mutex
	err  error
	done chan struct{}
	once sync.Once
}

func (s *firestoreMessageSubscription) run() {
	defer close(s.updates)

	for {
		snap, err := s.snaps.Next()
		if err != nil {
			if status.Code(err) != codes.Canceled {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
				logger.Error("Message subscription terminated: %v", err)
			}
			return
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			logger.Error("Message subscription read failed: %v", err)
			return
		}

		messages := make([]*entity.Message, 0, len(docs))
		for i := len(docs) - 1; i >= 0; i-- {
			var msg entity.Message
			if err := docs[i].DataTo(&msg); err != nil {
				continue
			}
			msg.ID = docs[i].Ref.ID
			messages = append(messages, &msg)
		}

		select {
		case s.updates <- messages:
		case <-s.done:
			return
		}
	}
}

func (s *firestoreMessageSubscription) Updates() <-chan []*entity.Message {
	return s.updates
}

func (s *firestoreMessageSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *firestoreMessageSubscription) Stop() {
	s.once.Do(func() {
		close(s.done)
		s.snaps.Stop()
	})
}
