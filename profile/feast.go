// Package profile 提供基于 Feast Feature Store 的用户画像读取。
// 读者档案由离线管道物化到在线存储，这里只做在线读取。
package profile

import (
	"context"
	"fmt"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"
	"go.uber.org/zap"

	"github.com/freadom/readrec/core"
)

// 在线特征布局：实体 reader_id，特征视图 reader_profile。
const (
	entityKey = "reader_id"

	featureName         = "reader_profile:name"
	featureAge          = "reader_profile:age"
	featureReadingLevel = "reader_profile:reading_level"
	featureInterests    = "reader_profile:interests"
	featureHistory      = "reader_profile:history"
)

// FeastUserStore 是 Feast 在线特征实现的 UserStore（只读）。
//
// 写路径（SaveUser / AppendHistory）不经过 Feature Store：
// 画像由离线管道维护，在线侧只消费，写操作返回 ErrStoreNotSupported，
// 调用方应路由到行存储目录。
type FeastUserStore struct {
	client  *feastsdk.GrpcClient
	project string
	log     *zap.Logger
}

// FeastOption 配置 FeastUserStore。
type FeastOption func(*FeastUserStore)

// WithFeastLogger 注入日志。
func WithFeastLogger(log *zap.Logger) FeastOption {
	return func(s *FeastUserStore) {
		if log != nil {
			s.log = log
		}
	}
}

// NewFeastUserStore 连接 Feast Feature Server（gRPC）。
func NewFeastUserStore(host string, port int, project string, opts ...FeastOption) (*FeastUserStore, error) {
	if port == 0 {
		port = 6565
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("profile: connect feast %s:%d: %w", host, port, err)
	}
	s := &FeastUserStore{
		client:  client,
		project: project,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FetchUser 从在线存储读取读者画像快照。
// reading_level 特征缺失视为用户不存在（物化过的画像必有该特征）。
func (s *FeastUserStore) FetchUser(ctx context.Context, id int64) (*core.User, error) {
	req := &feastsdk.OnlineFeaturesRequest{
		Features: []string{
			featureName,
			featureAge,
			featureReadingLevel,
			featureInterests,
			featureHistory,
		},
		Entities: []feastsdk.Row{
			{entityKey: feastsdk.Int64Val(id)},
		},
		Project: s.project,
	}

	resp, err := s.client.GetOnlineFeatures(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("profile: get online features for reader %d: %w", id, err)
	}

	rows := resp.Rows()
	if len(rows) != 1 {
		return nil, fmt.Errorf("profile: expected 1 feature row for reader %d, got %d", id, len(rows))
	}
	row := rows[0]

	level, ok := doubleFeature(row[featureReadingLevel])
	if !ok {
		return nil, core.ErrUserNotFound
	}

	u := &core.User{
		ID:           id,
		ReadingLevel: level,
		Interests:    stringListFeature(row[featureInterests]),
		History:      int64ListFeature(row[featureHistory]),
	}
	if name, ok := stringFeature(row[featureName]); ok {
		u.Name = name
	}
	if age, ok := int64Feature(row[featureAge]); ok {
		u.Age = int(age)
	}
	return u, nil
}

// SaveUser 在线侧不支持写入。
func (s *FeastUserStore) SaveUser(_ context.Context, u *core.User) error {
	return fmt.Errorf("profile: save reader %d: %w", u.ID, core.ErrStoreNotSupported)
}

// AppendHistory 在线侧不支持写入。
func (s *FeastUserStore) AppendHistory(_ context.Context, userID, _ int64) (bool, error) {
	return false, fmt.Errorf("profile: append history for reader %d: %w", userID, core.ErrStoreNotSupported)
}

// ListUsers 特征存储不支持实体枚举。
func (s *FeastUserStore) ListUsers(_ context.Context) ([]*core.User, error) {
	return nil, fmt.Errorf("profile: list readers: %w", core.ErrStoreNotSupported)
}

// Close 释放客户端。SDK 的连接由 gRPC 库管理。
func (s *FeastUserStore) Close() error {
	s.client = nil
	return nil
}

func doubleFeature(v *feasttypes.Value) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch v.Val.(type) {
	case *feasttypes.Value_DoubleVal:
		return v.GetDoubleVal(), true
	case *feasttypes.Value_FloatVal:
		return float64(v.GetFloatVal()), true
	case *feasttypes.Value_Int64Val:
		return float64(v.GetInt64Val()), true
	default:
		return 0, false
	}
}

func int64Feature(v *feasttypes.Value) (int64, bool) {
	if v == nil {
		return 0, false
	}
	switch v.Val.(type) {
	case *feasttypes.Value_Int64Val:
		return v.GetInt64Val(), true
	case *feasttypes.Value_Int32Val:
		return int64(v.GetInt32Val()), true
	default:
		return 0, false
	}
}

func stringFeature(v *feasttypes.Value) (string, bool) {
	if v == nil {
		return "", false
	}
	if _, ok := v.Val.(*feasttypes.Value_StringVal); !ok {
		return "", false
	}
	return v.GetStringVal(), true
}

func stringListFeature(v *feasttypes.Value) []string {
	if v == nil {
		return nil
	}
	list := v.GetStringListVal()
	if list == nil {
		return nil
	}
	return list.GetVal()
}

func int64ListFeature(v *feasttypes.Value) []int64 {
	if v == nil {
		return nil
	}
	list := v.GetInt64ListVal()
	if list == nil {
		return nil
	}
	return list.GetVal()
}

var _ core.UserStore = (*FeastUserStore)(nil)
