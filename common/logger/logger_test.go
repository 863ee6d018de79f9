package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/pulse/common/logger"
)

var _ = Describe("TraceHandler", func() {
	var (
		buf *bytes.Buffer
		log *slog.Logger
	)

	record := func() map[string]any {
		var out map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &out)).To(Succeed())
		return out
	}

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		log = slog.New(logger.NewTraceHandler(slog.NewJSONHandler(buf, nil)))
	})

	It("adds context log fields", func() {
		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			GuildID:   logger.Ptr("g1"),
			ChannelID: logger.Ptr("c1"),
			Component: "pulse.test",
		})
		ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: logger.Ptr("m1")})

		log.InfoContext(ctx, "processed")

		r := record()
		Expect(r).To(HaveKeyWithValue("guild_id", "g1"))
		Expect(r).To(HaveKeyWithValue("channel_id", "c1"))
		Expect(r).To(HaveKeyWithValue("message_id", "m1"))
		Expect(r).To(HaveKeyWithValue("component", "pulse.test"))
		Expect(r).NotTo(HaveKey("user_id"))
		Expect(r).NotTo(HaveKey("trace_id"))
	})

	It("keeps earlier fields when later ones are empty", func() {
		ctx := logger.WithLogFields(context.Background(), logger.LogFields{Component: "a"})
		ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr("u1")})

		Expect(logger.GetLogFields(ctx).Component).To(Equal("a"))
		Expect(*logger.GetLogFields(ctx).UserID).To(Equal("u1"))
	})
})

var _ = Describe("Truncate", func() {
	It("counts characters", func() {
		Expect(logger.Truncate("héllo", 2)).To(Equal("hé..."))
		Expect(logger.Truncate("hi", 2)).To(Equal("hi"))
	})
})
