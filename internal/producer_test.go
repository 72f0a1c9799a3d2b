package internal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"captioner/internal/captions"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_SendCaptionEvent(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	producer := newProducer(KafkaConfig{CaptionTopic: "captions"}, mock)

	event := &CaptionEvent{ID: 42, User: "g-1", Platform: "instagram", Caption: "Hi", Hashtags: []string{"#hi"}}

	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "captions" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "42" {
			return errors.New("wrong key " + string(key))
		}
		value, _ := msg.Value.Encode()
		var decoded CaptionEvent
		if err := json.Unmarshal(value, &decoded); err != nil {
			return err
		}
		if decoded.Caption != "Hi" {
			return errors.New("wrong caption")
		}
		return nil
	})

	require.NoError(t, producer.SendCaptionEvent(event))
	require.NoError(t, producer.Close())
}

type fakeInserter struct {
	record *CaptionRecord
	err    error
}

func (f *fakeInserter) InsertCaption(ctx context.Context, who captions.Identity, platform captions.Platform, result *captions.Result) (*CaptionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := *f.record
	r.Platform = string(platform)
	r.Caption = result.Caption
	r.Hashtags = result.Hashtags
	return &r, nil
}

type fakeSender struct {
	events []CaptionEvent
	err    error
}

func (f *fakeSender) SendCaptionEvent(event *CaptionEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, *event)
	return nil
}

func TestCaptionRecorder(t *testing.T) {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	result := &captions.Result{Caption: "Sunny", Hashtags: []string{"#sun"}, Tips: []string{}}

	t.Run("publishes after insert", func(t *testing.T) {
		sender := &fakeSender{}
		recorder := NewCaptionRecorder(&fakeInserter{record: &CaptionRecord{ID: 9, CreatedAt: created}}, sender)

		require.NoError(t, recorder.RecordCaption(context.Background(), "g-1", captions.Instagram, result))

		require.Len(t, sender.events, 1)
		assert.Equal(t, CaptionEvent{ID: 9, User: "g-1", Platform: "instagram", Caption: "Sunny", Hashtags: []string{"#sun"}, CreatedAt: created}, sender.events[0])
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		recorder := NewCaptionRecorder(&fakeInserter{record: &CaptionRecord{ID: 9}}, &fakeSender{err: errors.New("broker down")})

		assert.NoError(t, recorder.RecordCaption(context.Background(), "", captions.Twitter, result))
	})

	t.Run("insert failure is returned and nothing is published", func(t *testing.T) {
		sender := &fakeSender{}
		recorder := NewCaptionRecorder(&fakeInserter{err: errors.New("db down")}, sender)

		assert.Error(t, recorder.RecordCaption(context.Background(), "", captions.Twitter, result))
		assert.Empty(t, sender.events)
	})

	t.Run("without kafka", func(t *testing.T) {
		recorder := NewCaptionRecorder(&fakeInserter{record: &CaptionRecord{ID: 1}}, nil)

		assert.NoError(t, recorder.RecordCaption(context.Background(), "", captions.LinkedIn, result))
	})
}
