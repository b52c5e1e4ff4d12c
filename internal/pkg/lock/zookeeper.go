// internal/pkg/lock/zookeeper.go
package lock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
)

const zkLockRoot = "/distributed_locks" // 所有分布式锁的根节点

// ZKLocker 是 KeyLocker 的 ZooKeeper 实现，基于临时顺序节点排队。
// 多实例部署时用它替换 KeyMutex。租约由 ZK 会话生命周期兜底，
// 持有者崩溃后临时节点随会话消失，锁自动释放。
type ZKLocker struct {
	conn *zk.Conn
}

// NewZKLocker 连接 ZooKeeper 并确保锁根节点存在。
func NewZKLocker(servers []string, sessionTimeout time.Duration) (*ZKLocker, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "connect zookeeper")
	}
	if err := ensureNode(conn, zkLockRoot); err != nil {
		conn.Close()
		return nil, err
	}
	return &ZKLocker{conn: conn}, nil
}

func ensureNode(conn *zk.Conn, path string) error {
	exists, _, err := conn.Exists(path)
	if err != nil {
		return errors.Wrapf(err, "check node %s", path)
	}
	if exists {
		return nil
	}
	_, err = conn.Create(path, []byte(""), 0, zk.WorldACL(zk.PermAll))
	if err != nil && err != zk.ErrNodeExists {
		return errors.Wrapf(err, "create node %s", path)
	}
	return nil
}

// Acquire 在 key 对应的路径下创建临时顺序节点并排队。
// 自己是最小节点即持锁；否则监听前一个节点，直到 wait 预算耗尽。
func (z *ZKLocker) Acquire(ctx context.Context, key string, wait, lease time.Duration) (Release, error) {
	lockPath := zkLockRoot + "/" + key
	if err := ensureNode(z.conn, lockPath); err != nil {
		return nil, err
	}

	nodePath, err := z.conn.CreateProtectedEphemeralSequential(lockPath+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return nil, errors.Wrap(err, "create sequential node")
	}

	deadline := time.Now().Add(wait)
	myNodeName := strings.TrimPrefix(nodePath, lockPath+"/")

	for {
		children, _, err := z.conn.Children(lockPath)
		if err != nil {
			z.abandon(nodePath)
			return nil, errors.Wrap(err, "list lock children")
		}
		sort.Strings(children)

		if len(children) > 0 && myNodeName == children[0] {
			return z.releaseFunc(nodePath), nil
		}

		// 只监听排在自己前面的那个节点，避免惊群
		prevIndex := -1
		for i, child := range children {
			if child == myNodeName {
				prevIndex = i - 1
				break
			}
		}
		if prevIndex < 0 {
			z.abandon(nodePath)
			return nil, fmt.Errorf("own lock node %s missing from children", myNodeName)
		}

		_, _, eventChan, err := z.conn.ExistsW(lockPath + "/" + children[prevIndex])
		if err != nil {
			if err == zk.ErrNoNode {
				continue
			}
			z.abandon(nodePath)
			return nil, errors.Wrap(err, "watch previous node")
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			z.abandon(nodePath)
			return nil, ErrLockAcquisitionFailed
		}
		waitTimer := time.NewTimer(remaining)
		select {
		case event := <-eventChan:
			waitTimer.Stop()
			if event.Type == zk.EventNodeDeleted {
				continue
			}
		case <-waitTimer.C:
			z.abandon(nodePath)
			return nil, ErrLockAcquisitionFailed
		case <-ctx.Done():
			waitTimer.Stop()
			z.abandon(nodePath)
			return nil, ctx.Err()
		}
	}
}

func (z *ZKLocker) releaseFunc(nodePath string) Release {
	return func() {
		z.abandon(nodePath)
	}
}

func (z *ZKLocker) abandon(nodePath string) {
	_ = z.conn.Delete(nodePath, -1)
}

// Close 断开 ZooKeeper 会话，所有持有中的锁随之释放。
func (z *ZKLocker) Close() {
	z.conn.Close()
}
