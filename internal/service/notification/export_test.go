package notification

// SetAfterCount installs fn between the DB count and the cache write of UnreadCount.
func (s *Service) SetAfterCount(fn func()) { s.afterCount = fn }
