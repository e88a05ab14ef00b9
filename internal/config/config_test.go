package config_test

import (
	"testing"

	"github.com/okian/rallyboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8090")
			convey.So(cfg.NATSURL, convey.ShouldEqual, "nats://127.0.0.1:4222")
			convey.So(cfg.SubjectPrefix, convey.ShouldEqual, "scoreboard")
			convey.So(cfg.SnapshotTimeoutMS, convey.ShouldEqual, 5_000)
			convey.So(cfg.WriteTimeoutMS, convey.ShouldEqual, 10_000)
			convey.So(cfg.ResyncBackoffMinMS, convey.ShouldEqual, 500)
			convey.So(cfg.ResyncBackoffMaxMS, convey.ShouldEqual, 30_000)
			convey.So(cfg.WSSendBuffer, convey.ShouldEqual, 16)
			convey.So(len(cfg.TeamsGroupA), convey.ShouldEqual, 4)
			convey.So(len(cfg.TeamsGroupB), convey.ShouldEqual, 3)
		})
	})
}
