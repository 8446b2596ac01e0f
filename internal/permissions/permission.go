package permissions

import "sort"

// Permission 权限标识
// 命名健康数据类型上的一种读/写能力
type Permission string

const (
	// ReadBloodGlucose 读取血糖记录
	ReadBloodGlucose Permission = "health.blood_glucose.read"

	// WriteBloodGlucose 写入血糖记录
	WriteBloodGlucose Permission = "health.blood_glucose.write"

	// ReadHistory 读取历史数据（可选权限）
	ReadHistory Permission = "health.history.read"

	// ReadInBackground 后台读取（可选权限）
	ReadInBackground Permission = "health.background.read"
)

// Set 不可变权限集合
// 在进程启动时构造一次,之后只读
type Set struct {
	perms map[Permission]struct{}
}

// NewSet 创建权限集合
func NewSet(perms ...Permission) Set {
	m := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		m[p] = struct{}{}
	}
	return Set{perms: m}
}

// NewSetFromStrings 从字符串标识创建权限集合
func NewSetFromStrings(ids []string) Set {
	m := make(map[Permission]struct{}, len(ids))
	for _, id := range ids {
		m[Permission(id)] = struct{}{}
	}
	return Set{perms: m}
}

// RequiredSet 返回固定的必需权限集合
// 上传流程需要血糖记录的读写权限
func RequiredSet() Set {
	return NewSet(ReadBloodGlucose, WriteBloodGlucose)
}

// OptionalSet 返回可选权限集合
func OptionalSet() Set {
	return NewSet(ReadHistory, ReadInBackground)
}

// Contains 判断集合是否包含指定权限
func (s Set) Contains(p Permission) bool {
	_, ok := s.perms[p]
	return ok
}

// ContainsAll 判断集合是否为 other 的超集
func (s Set) ContainsAll(other Set) bool {
	for p := range other.perms {
		if !s.Contains(p) {
			return false
		}
	}
	return true
}

// Minus 返回 s 中存在但 other 中不存在的权限
func (s Set) Minus(other Set) Set {
	m := make(map[Permission]struct{})
	for p := range s.perms {
		if !other.Contains(p) {
			m[p] = struct{}{}
		}
	}
	return Set{perms: m}
}

// Len 返回集合大小
func (s Set) Len() int {
	return len(s.perms)
}

// Slice 返回排序后的权限列表
func (s Set) Slice() []Permission {
	out := make([]Permission, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings 返回排序后的权限标识字符串列表
func (s Set) Strings() []string {
	perms := s.Slice()
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return out
}
